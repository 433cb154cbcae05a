package persist

// object is a generic named node in the persisted tree: a line-oriented
// record with string attributes and child objects indented one level
// deeper than their parent. Domain types (session.go) are built and read
// through this generic shape rather than hand-rolling their own framing.
type object struct {
	name     string
	attrs    map[string]string
	attrKeys []string // preserves insertion order for deterministic output
	children []*object
	line     int
	depth    int
}

func newObject(name string, depth int) *object {
	return &object{name: name, attrs: make(map[string]string), depth: depth}
}

func (o *object) setAttr(key, value string) {
	if _, exists := o.attrs[key]; !exists {
		o.attrKeys = append(o.attrKeys, key)
	}
	o.attrs[key] = value
}

func (o *object) attr(key string) (string, bool) {
	v, ok := o.attrs[key]
	return v, ok
}

func (o *object) requireAttr(key string) (string, error) {
	v, ok := o.attrs[key]
	if !ok {
		return "", errAt(o.line, "object %q requires attribute %q", o.name, key)
	}
	return v, nil
}

func (o *object) addChild(name string) *object {
	child := newObject(name, o.depth+1)
	o.children = append(o.children, child)
	return child
}

// serialise appends this object (and its whole subtree) to toks.
func (o *object) serialise(toks *[]token) {
	*toks = append(*toks, token{kind: tokIdentifier, text: o.name})
	for _, key := range o.attrKeys {
		*toks = append(*toks, token{kind: tokIdentifier, text: key})
		*toks = append(*toks, token{kind: tokAssignment, text: "="})
		*toks = append(*toks, token{kind: tokString, text: o.attrs[key]})
	}
	for _, child := range o.children {
		indent := ""
		for i := 0; i < child.depth; i++ {
			indent += " "
		}
		*toks = append(*toks, token{kind: tokIndentation, text: indent})
		child.serialise(toks)
	}
}

// deserialiseObject reads one object starting at toks[*pos], consuming its
// attributes and, transitively, any children indented exactly one level
// deeper. pos is left on the token that begins the next sibling (or
// ancestor sibling), mirroring the original parser's "objects always share
// one flat token stream" design.
func deserialiseObject(toks []token, pos *int, depth int) (*object, error) {
	if *pos >= len(toks) || toks[*pos].kind != tokIdentifier {
		line := 0
		if *pos < len(toks) {
			line = toks[*pos].line
		}
		return nil, errAt(line, "expected object name")
	}
	o := newObject(toks[*pos].text, depth)
	o.line = toks[*pos].line
	*pos++

	for *pos < len(toks) && toks[*pos].kind == tokIdentifier {
		name := toks[*pos].text
		nameLine := toks[*pos].line
		*pos++
		if *pos >= len(toks) || toks[*pos].kind != tokAssignment {
			return nil, errAt(nameLine, "expected '=' after %s", name)
		}
		*pos++
		if *pos >= len(toks) || toks[*pos].kind != tokString {
			return nil, errAt(nameLine, "expected string literal as value for attribute %q", name)
		}
		o.setAttr(name, toks[*pos].text)
		*pos++
	}

	for *pos < len(toks) && toks[*pos].kind == tokIndentation {
		childDepth := len([]rune(toks[*pos].text))
		if childDepth <= depth {
			break
		}
		if childDepth != depth+1 {
			return nil, errAt(toks[*pos].line, "child object's indentation must be parent's plus one")
		}
		indentLine := toks[*pos].line
		*pos++
		if *pos >= len(toks) || toks[*pos].kind != tokIdentifier {
			return nil, errAt(indentLine, "expected child object after indentation")
		}
		child, err := deserialiseObject(toks, pos, childDepth)
		if err != nil {
			return nil, err
		}
		o.children = append(o.children, child)
	}

	return o, nil
}

func (o *object) childrenNamed(name string) []*object {
	var out []*object
	for _, c := range o.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func (o *object) firstChildNamed(name string) (*object, bool) {
	for _, c := range o.children {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}
