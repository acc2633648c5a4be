package header

// Collection is an immutable ordered multiset of address headers. The zero
// value and a nil *Collection are empty.
type Collection struct {
	headers []*AddressHeader
}

// NewCollection returns a collection of hs, in order. Nil headers are dropped.
func NewCollection(hs ...*AddressHeader) *Collection {
	c := &Collection{headers: make([]*AddressHeader, 0, len(hs))}
	for _, h := range hs {
		if h != nil {
			c.headers = append(c.headers, h)
		}
	}
	return c
}

// Len returns the number of headers.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.headers)
}

// At returns the i-th header, or nil when i is out of range.
func (c *Collection) At(i int) *AddressHeader {
	if i < 0 || i >= c.Len() {
		return nil
	}
	return c.headers[i]
}

// All returns a copy of the headers in order.
func (c *Collection) All() []*AddressHeader {
	if c == nil {
		return nil
	}
	return append([]*AddressHeader(nil), c.headers...)
}

// Find returns the first header with the given name and namespace, or nil.
func (c *Collection) Find(name, namespace string) *AddressHeader {
	for _, h := range c.All() {
		if h.name.Local == name && h.name.Space == namespace {
			return h
		}
	}
	return nil
}

// FindAll returns every header with the given name and namespace.
func (c *Collection) FindAll(name, namespace string) []*AddressHeader {
	var out []*AddressHeader
	for _, h := range c.All() {
		if h.name.Local == name && h.name.Space == namespace {
			out = append(out, h)
		}
	}
	return out
}

// Parameters returns the headers with RoleParameter.
func (c *Collection) Parameters() []*AddressHeader {
	return c.withRole(RoleParameter)
}

// Properties returns the headers with RoleProperty.
func (c *Collection) Properties() []*AddressHeader {
	return c.withRole(RoleProperty)
}

// HasProperties reports whether any header is a reference property.
func (c *Collection) HasProperties() bool {
	return len(c.Properties()) > 0
}

func (c *Collection) withRole(r Role) []*AddressHeader {
	var out []*AddressHeader
	for _, h := range c.All() {
		if h.role == r {
			out = append(out, h)
		}
	}
	return out
}

// Equal reports multiset equality, ignoring order and roles.
func (c *Collection) Equal(o *Collection) bool {
	if c.Len() != o.Len() {
		return false
	}
	used := make([]bool, o.Len())
	for _, h := range c.All() {
		found := false
		for j, oh := range o.All() {
			if !used[j] && h.Equal(oh) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Hash returns an order-independent hash consistent with Equal.
func (c *Collection) Hash() uint32 {
	var sum uint32
	for _, h := range c.All() {
		sum += h.Hash()
	}
	return sum
}
