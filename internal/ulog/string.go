package ulog

// ULogString is a user-defined constant string carved into the dictionary,
// referenced from argument payloads by id (its byte offset within the
// "string" sub-section). It is pure storage: no behavior beyond what a
// reader needs to pull the value and its declaration site back out.
type ULogString struct {
	ID       uint16
	Value    string
	Location Location
}
