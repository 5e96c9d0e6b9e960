package ulog

// Location identifies where a message or string was declared in device
// firmware source. File paths are shared by reference across every message
// and string that came from the same compilation unit; the dictionary
// loader interns them so a firmware image with thousands of log call sites
// in a handful of files doesn't carry thousands of copies of the same path.
type Location struct {
	File *string
	Line uint32
}

// Less orders locations lexicographically by file then by line, giving a
// total order usable for the declaration-order reconstruction in the
// dictionary loader.
func (l Location) Less(other Location) bool {
	if *l.File != *other.File {
		return *l.File < *other.File
	}
	return l.Line < other.Line
}

// Equal compares locations by content, not by pointer identity of File.
func (l Location) Equal(other Location) bool {
	return l.Line == other.Line && *l.File == *other.File
}

// fileInterner deduplicates file path strings so every Location sharing a
// path shares a single backing string, the way Arc<String> does in the
// source implementation.
type fileInterner struct {
	seen map[string]*string
}

func newFileInterner() *fileInterner {
	return &fileInterner{seen: make(map[string]*string)}
}

func (f *fileInterner) intern(file string) *string {
	if p, ok := f.seen[file]; ok {
		return p
	}
	p := new(string)
	*p = file
	f.seen[file] = p
	return p
}
