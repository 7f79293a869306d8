package identity

// Assignment distinguishes "field not supplied" from "explicitly cleared"
// from "set to a person". Overloading nil for all three is how bugs happen.
type Assignment struct {
	kind assignmentKind
	id   string
}

type assignmentKind int

const (
	assignmentUnset assignmentKind = iota
	assignmentClear
	assignmentSet
)

func Unset() Assignment       { return Assignment{} }
func Clear() Assignment       { return Assignment{kind: assignmentClear} }
func Set(id string) Assignment { return Assignment{kind: assignmentSet, id: id} }

func (a Assignment) IsUnset() bool { return a.kind == assignmentUnset }
func (a Assignment) IsClear() bool { return a.kind == assignmentClear }

// ID returns the person ref and whether one was set.
func (a Assignment) ID() (string, bool) {
	return a.id, a.kind == assignmentSet
}
