package query

import (
	"strconv"
	"strings"
)

// Parser turns a token stream from Lexer into a Statement. It's a classic
// recursive-descent parser with a precedence-climbing expression parser;
// there's no separate AST-builder pass, each parseX method returns its
// node directly.
type Parser struct {
	lex  *Lexer
	cur  Token
	next Token
	err  error
}

// Parse parses src as a single statement.
func Parse(src string) (Statement, error) {
	p := &Parser{lex: NewLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseStatement()
}

func (p *Parser) advance() error {
	p.cur = p.next
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.next = tok
	return nil
}

func (p *Parser) check(k Kind) bool { return p.cur.Kind == k }

func (p *Parser) expect(k Kind) (Token, error) {
	if p.cur.Kind != k {
		return Token{}, &SyntaxError{Pos: p.cur.Pos, Msg: "unexpected token " + p.cur.String()}
	}
	tok := p.cur
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

func (p *Parser) parseStatement() (Statement, error) {
	switch p.cur.Kind {
	case KwBegin:
		p.advance()
		return &TxControlStmt{Kind: "BEGIN"}, nil
	case KwCommit:
		p.advance()
		return &TxControlStmt{Kind: "COMMIT"}, nil
	case KwRollback:
		p.advance()
		return &TxControlStmt{Kind: "ROLLBACK"}, nil
	case KwCreate:
		if p.next.Kind == KwIndex {
			return p.parseCreateIndex()
		}
		if p.next.Kind == KwConstraint {
			return p.parseCreateConstraint()
		}
	case KwDrop:
		if p.next.Kind == KwIndex {
			p.advance()
			p.advance()
			name, err := p.expect(Ident)
			if err != nil {
				return nil, err
			}
			return &DropIndexStmt{Name: name.Text}, nil
		}
		if p.next.Kind == KwConstraint {
			p.advance()
			p.advance()
			name, err := p.expect(Ident)
			if err != nil {
				return nil, err
			}
			return &DropConstraintStmt{Name: name.Text}, nil
		}
	}
	return p.parseQuery()
}

func (p *Parser) parseCreateIndex() (Statement, error) {
	p.advance() // CREATE
	p.advance() // INDEX
	name, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KwOn); err != nil {
		return nil, err
	}
	if _, err := p.expect(Colon); err != nil {
		return nil, err
	}
	label, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	prop, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	return &CreateIndexStmt{Name: name.Text, Label: label.Text, Property: prop.Text}, nil
}

func (p *Parser) parseCreateConstraint() (Statement, error) {
	p.advance() // CREATE
	p.advance() // CONSTRAINT
	name, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}
	unique := false
	if p.check(KwUnique) {
		unique = true
		p.advance()
	}
	if _, err := p.expect(KwOn); err != nil {
		return nil, err
	}
	if _, err := p.expect(Colon); err != nil {
		return nil, err
	}
	label, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	prop, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	return &CreateConstraintStmt{Name: name.Text, Label: label.Text, Property: prop.Text, Unique: unique}, nil
}

func (p *Parser) parseQuery() (*Query, error) {
	q := &Query{}
	for {
		switch p.cur.Kind {
		case EOF:
			return q, nil
		case KwMatch, KwOptional:
			c, err := p.parseMatch()
			if err != nil {
				return nil, err
			}
			q.Clauses = append(q.Clauses, c)
		case KwCreate:
			c, err := p.parseCreate()
			if err != nil {
				return nil, err
			}
			q.Clauses = append(q.Clauses, c)
		case KwMerge:
			c, err := p.parseMerge()
			if err != nil {
				return nil, err
			}
			q.Clauses = append(q.Clauses, c)
		case KwSet:
			c, err := p.parseSet()
			if err != nil {
				return nil, err
			}
			q.Clauses = append(q.Clauses, c)
		case KwDelete, KwDetach:
			c, err := p.parseDelete()
			if err != nil {
				return nil, err
			}
			q.Clauses = append(q.Clauses, c)
		case KwWith:
			c, err := p.parseWith()
			if err != nil {
				return nil, err
			}
			q.Clauses = append(q.Clauses, c)
		case KwUnwind:
			c, err := p.parseUnwind()
			if err != nil {
				return nil, err
			}
			q.Clauses = append(q.Clauses, c)
		case KwCall:
			c, err := p.parseCall()
			if err != nil {
				return nil, err
			}
			q.Clauses = append(q.Clauses, c)
		case KwReturn:
			c, err := p.parseReturn()
			if err != nil {
				return nil, err
			}
			q.Clauses = append(q.Clauses, c)
			return q, nil
		default:
			return nil, &SyntaxError{Pos: p.cur.Pos, Msg: "unexpected token starting clause: " + p.cur.String()}
		}
	}
}

func (p *Parser) parseMatch() (*MatchClause, error) {
	mc := &MatchClause{}
	if p.check(KwOptional) {
		mc.Optional = true
		p.advance()
	}
	if _, err := p.expect(KwMatch); err != nil {
		return nil, err
	}
	for {
		pat, err := p.parsePathPattern()
		if err != nil {
			return nil, err
		}
		mc.Patterns = append(mc.Patterns, pat)
		if p.check(Comma) {
			p.advance()
			continue
		}
		break
	}
	if p.check(KwWhere) {
		p.advance()
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		mc.Where = where
	}
	return mc, nil
}

func (p *Parser) parseCreate() (*CreateClause, error) {
	p.advance() // CREATE
	cc := &CreateClause{}
	for {
		pat, err := p.parsePathPattern()
		if err != nil {
			return nil, err
		}
		cc.Patterns = append(cc.Patterns, pat)
		if p.check(Comma) {
			p.advance()
			continue
		}
		break
	}
	return cc, nil
}

func (p *Parser) parseMerge() (*MergeClause, error) {
	p.advance() // MERGE
	pat, err := p.parsePathPattern()
	if err != nil {
		return nil, err
	}
	return &MergeClause{Pattern: pat}, nil
}

func (p *Parser) parseSetItems() ([]*SetItem, error) {
	var items []*SetItem
	for {
		v, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Dot); err != nil {
			return nil, err
		}
		prop, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Eq); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, &SetItem{Var: v.Text, Prop: prop.Text, Value: val})
		if p.check(Comma) {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseSet() (*SetClause, error) {
	p.advance() // SET
	items, err := p.parseSetItems()
	if err != nil {
		return nil, err
	}
	return &SetClause{Items: items}, nil
}

func (p *Parser) parseDelete() (*DeleteClause, error) {
	dc := &DeleteClause{}
	if p.check(KwDetach) {
		dc.Detach = true
		p.advance()
	}
	if _, err := p.expect(KwDelete); err != nil {
		return nil, err
	}
	for {
		v, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		dc.Vars = append(dc.Vars, v.Text)
		if p.check(Comma) {
			p.advance()
			continue
		}
		break
	}
	return dc, nil
}

func (p *Parser) parseWith() (*WithClause, error) {
	p.advance() // WITH
	wc := &WithClause{}
	items, err := p.parseReturnItems()
	if err != nil {
		return nil, err
	}
	wc.Items = items
	if p.check(KwWhere) {
		p.advance()
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		wc.Where = where
	}
	return wc, nil
}

func (p *Parser) parseUnwind() (*UnwindClause, error) {
	p.advance() // UNWIND
	list, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KwAs); err != nil {
		return nil, err
	}
	as, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}
	return &UnwindClause{List: list, As: as.Text}, nil
}

func (p *Parser) parseCall() (*CallClause, error) {
	p.advance() // CALL
	if _, err := p.expect(LBrace); err != nil {
		return nil, err
	}
	sub, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RBrace); err != nil {
		return nil, err
	}
	cc := &CallClause{Subquery: sub}
	if p.check(KwIn) {
		p.advance()
		if _, err := p.expect(KwTransactions); err != nil {
			return nil, err
		}
		cc.InTransactions = true
		if p.check(KwOf) {
			p.advance()
			n, err := p.expect(IntLit)
			if err != nil {
				return nil, err
			}
			cc.BatchRows, _ = strconv.Atoi(n.Text)
			if _, err := p.expect(KwRows); err != nil {
				return nil, err
			}
		}
	}
	return cc, nil
}

func (p *Parser) parseReturnItems() ([]ReturnItem, error) {
	var items []ReturnItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := ReturnItem{Expr: e}
		if p.check(KwAs) {
			p.advance()
			alias, err := p.expect(Ident)
			if err != nil {
				return nil, err
			}
			item.Alias = alias.Text
		}
		items = append(items, item)
		if p.check(Comma) {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseReturn() (*ReturnClause, error) {
	p.advance() // RETURN
	rc := &ReturnClause{}
	if p.cur.Kind == Ident && strings.EqualFold(p.cur.Text, "DISTINCT") {
		rc.Distinct = true
		p.advance()
	}
	items, err := p.parseReturnItems()
	if err != nil {
		return nil, err
	}
	rc.Items = items

	if p.check(KwOrder) {
		p.advance()
		if _, err := p.expect(KwBy); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			asc := true
			if p.check(KwAsc) {
				p.advance()
			} else if p.check(KwDesc) {
				asc = false
				p.advance()
			}
			rc.OrderBy = append(rc.OrderBy, OrderItem{Expr: e, Ascending: asc})
			if p.check(Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	if p.check(KwSkip) {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		rc.Skip = e
	}
	if p.check(KwLimit) {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		rc.Limit = e
	}
	return rc, nil
}

// --- Patterns ---

func (p *Parser) parsePathPattern() (*PathPattern, error) {
	pp := &PathPattern{}
	if p.cur.Kind == Ident && p.next.Kind == Eq {
		pp.Name = p.cur.Text
		p.advance()
		p.advance()
	}
	start, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	pp.Start = start
	for p.check(Dash) || p.check(BackArrow) {
		hop, err := p.parseHop()
		if err != nil {
			return nil, err
		}
		pp.Hops = append(pp.Hops, hop)
	}
	return pp, nil
}

func (p *Parser) parseNodePattern() (*NodePattern, error) {
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	np := &NodePattern{Props: map[string]Expr{}}
	if p.check(Ident) {
		np.Var = p.cur.Text
		p.advance()
	}
	for p.check(Colon) {
		p.advance()
		label, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		np.Labels = append(np.Labels, label.Text)
	}
	if p.check(LBrace) {
		props, err := p.parsePropMap()
		if err != nil {
			return nil, err
		}
		np.Props = props
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	return np, nil
}

func (p *Parser) parseHop() (*Hop, error) {
	leadingIn := false
	if p.check(BackArrow) {
		leadingIn = true
		p.advance()
	} else if _, err := p.expect(Dash); err != nil {
		return nil, err
	}

	rel := &RelPattern{MinHops: 1, MaxHops: 1}
	if p.check(LBracket) {
		p.advance()
		if p.check(Ident) {
			rel.Var = p.cur.Text
			p.advance()
		}
		if p.check(Colon) {
			p.advance()
			for {
				t, err := p.expect(Ident)
				if err != nil {
					return nil, err
				}
				rel.Types = append(rel.Types, t.Text)
				if p.check(Pipe) {
					p.advance()
					continue
				}
				break
			}
		}
		if p.check(Star) {
			p.advance()
			rel.VarLength = true
			rel.MinHops, rel.MaxHops = 1, -1
			if p.check(IntLit) {
				n, _ := strconv.Atoi(p.cur.Text)
				rel.MinHops = n
				rel.MaxHops = n
				p.advance()
				if p.check(DotDot) {
					p.advance()
					if p.check(IntLit) {
						m, _ := strconv.Atoi(p.cur.Text)
						rel.MaxHops = m
						p.advance()
					} else {
						rel.MaxHops = -1
					}
				}
			} else if p.check(DotDot) {
				p.advance()
				if p.check(IntLit) {
					m, _ := strconv.Atoi(p.cur.Text)
					rel.MaxHops = m
					p.advance()
				}
			}
		}
		if p.check(LBrace) {
			props, err := p.parsePropMap()
			if err != nil {
				return nil, err
			}
			rel.Props = props
		}
		if _, err := p.expect(RBracket); err != nil {
			return nil, err
		}
	}

	var dir Direction
	if leadingIn {
		dir = DirIn
		if _, err := p.expect(Dash); err != nil {
			return nil, err
		}
	} else if p.check(Arrow) {
		p.advance()
		dir = DirOut
	} else if p.check(Dash) {
		p.advance()
		dir = DirEither
	} else {
		return nil, &SyntaxError{Pos: p.cur.Pos, Msg: "expected '-' or '->' closing relationship pattern, got " + p.cur.String()}
	}
	rel.Direction = dir

	node, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	return &Hop{Rel: rel, Node: node}, nil
}

func (p *Parser) parsePropMap() (map[string]Expr, error) {
	if _, err := p.expect(LBrace); err != nil {
		return nil, err
	}
	props := map[string]Expr{}
	if p.check(RBrace) {
		p.advance()
		return props, nil
	}
	for {
		key, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Colon); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		props[key.Text] = val
		if p.check(Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(RBrace); err != nil {
		return nil, err
	}
	return props, nil
}

// --- Expressions (precedence climbing, lowest to highest) ---

func (p *Parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	for p.check(KwOr) {
		p.advance()
		right, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseXor() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.check(KwXor) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "XOR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.check(KwAnd) {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.check(KwNot) {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Operand: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[Kind]string{
	Eq: "=", Neq: "<>", Lt: "<", Lte: "<=", Gt: ">", Gte: ">=",
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.check(Knn) {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		prop, ok := left.(*PropertyAccess)
		if !ok {
			return nil, &SyntaxError{Pos: p.cur.Pos, Msg: "KNN operator <-> requires a property access on its left side"}
		}
		vec, ok := toVectorLiteral(right)
		if !ok {
			return nil, &SyntaxError{Pos: p.cur.Pos, Msg: "KNN operator <-> requires a numeric vector literal on its right side"}
		}
		return &KnnExpr{Prop: prop, Vector: vec}, nil
	}
	if op, ok := comparisonOps[p.cur.Kind]; ok {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func toVectorLiteral(e Expr) ([]float64, bool) {
	list, ok := e.(*ListExpr)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(list.Items))
	for _, item := range list.Items {
		lit, ok := item.(*Literal)
		if !ok {
			return nil, false
		}
		switch v := lit.Value.(type) {
		case int64:
			out = append(out, float64(v))
		case float64:
			out = append(out, v)
		default:
			return nil, false
		}
	}
	return out, true
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.check(Plus) || p.check(Dash) {
		op := "+"
		if p.check(Dash) {
			op = "-"
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.check(Star) || p.check(Slash) || p.check(Percent) {
		op := map[Kind]string{Star: "*", Slash: "/", Percent: "%"}[p.cur.Kind]
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.check(Dash) {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: "-", Left: &Literal{Value: int64(0)}, Right: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch p.cur.Kind {
	case IntLit:
		n, _ := strconv.ParseInt(p.cur.Text, 10, 64)
		p.advance()
		return &Literal{Value: n}, nil
	case FloatLit:
		f, _ := strconv.ParseFloat(p.cur.Text, 64)
		p.advance()
		return &Literal{Value: f}, nil
	case StringLit:
		s := p.cur.Text
		p.advance()
		return &Literal{Value: s}, nil
	case KwTrue:
		p.advance()
		return &Literal{Value: true}, nil
	case KwFalse:
		p.advance()
		return &Literal{Value: false}, nil
	case KwNull:
		p.advance()
		return &Literal{Value: nil}, nil
	case Param:
		name := p.cur.Text
		p.advance()
		return &ParamRef{Name: name}, nil
	case LBracket:
		p.advance()
		var items []Expr
		if !p.check(RBracket) {
			for {
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				items = append(items, e)
				if p.check(Comma) {
					p.advance()
					continue
				}
				break
			}
		}
		if _, err := p.expect(RBracket); err != nil {
			return nil, err
		}
		return &ListExpr{Items: items}, nil
	case LParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RParen); err != nil {
			return nil, err
		}
		return e, nil
	case Ident:
		name := p.cur.Text
		p.advance()
		if p.check(LParen) {
			return p.parseFuncCallArgs(name)
		}
		if p.check(Dot) {
			p.advance()
			prop, err := p.expect(Ident)
			if err != nil {
				return nil, err
			}
			return &PropertyAccess{Var: name, Prop: prop.Text}, nil
		}
		return &VarRef{Name: name}, nil
	default:
		return nil, &SyntaxError{Pos: p.cur.Pos, Msg: "unexpected token in expression: " + p.cur.String()}
	}
}

func (p *Parser) parseFuncCallArgs(name string) (Expr, error) {
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	fc := &FuncCall{Name: strings.ToLower(name), IsAggregate: aggregateNames[strings.ToLower(name)]}
	if p.cur.Kind == Ident && strings.EqualFold(p.cur.Text, "DISTINCT") {
		fc.Distinct = true
		p.advance()
	}
	if p.check(Star) {
		p.advance()
		fc.Args = []Expr{&VarRef{Name: "*"}}
	} else if !p.check(RParen) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			fc.Args = append(fc.Args, arg)
			if p.check(Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	return fc, nil
}
