// SPDX-License-Identifier: MPL-2.0

package palette

// Fragment is one module's contribution to the registry: commands to add or
// override, command names to hide, and groups to extend.
type Fragment struct {
	Add    *Table[RawCommand]
	Remove []string
	Group  *Table[RawGroup]
}

// NewFragment creates an empty fragment.
func NewFragment() *Fragment {
	return &Fragment{
		Add:   NewTable[RawCommand](),
		Group: NewTable[RawGroup](),
	}
}

// AddCommand declares (or overrides) the command called name.
func (f *Fragment) AddCommand(name string, raw RawCommand) *Fragment {
	if f.Add == nil {
		f.Add = NewTable[RawCommand]()
	}
	f.Add.Set(name, raw)
	return f
}

// RemoveCommands hides the named commands from every identity.
func (f *Fragment) RemoveCommands(names ...string) *Fragment {
	f.Remove = append(f.Remove, names...)
	return f
}

// AddGroup declares (or extends) the group called name.
func (f *Fragment) AddGroup(name string, raw RawGroup) *Fragment {
	if f.Group == nil {
		f.Group = NewTable[RawGroup]()
	}
	f.Group.Set(name, raw)
	return f
}

// IsEmpty reports whether the fragment contributes nothing.
func (f *Fragment) IsEmpty() bool {
	return f == nil || (f.Add.Len() == 0 && len(f.Remove) == 0 && f.Group.Len() == 0)
}
