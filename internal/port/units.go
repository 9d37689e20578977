package port

// UnitCounter measures text against the context budget.
type UnitCounter interface {
	Count(text string) int

	// Truncate returns the longest prefix of text holding at most n units.
	Truncate(text string, n int) string

	Name() string
}
