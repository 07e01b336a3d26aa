package store

// Scope selects which entries a search considers relative to its base DN.
type Scope int

const (
	// BaseObject matches only the base entry itself.
	BaseObject Scope = iota
	// SingleLevel matches the base's immediate children.
	SingleLevel
	// WholeSubtree matches the base and every descendant.
	WholeSubtree
	// Subordinates matches every descendant but not the base itself.
	Subordinates
)

func (s Scope) String() string {
	switch s {
	case BaseObject:
		return "baseObject"
	case SingleLevel:
		return "singleLevel"
	case WholeSubtree:
		return "wholeSubtree"
	case Subordinates:
		return "subordinates"
	default:
		return "unknown"
	}
}
