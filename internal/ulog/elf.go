package ulog

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/alexkar598/ulog-decoder/internal/er"
	"github.com/alexkar598/ulog-decoder/internal/splitter"
	"github.com/alexkar598/ulog-decoder/internal/template"
)

// LoadErrorType groups the fatal faults that can abort a dictionary load:
// anything wrong with the file itself or the shape of the .ulog section.
var LoadErrorType = er.NewErrorType("ulog.ElfLoadError")

var (
	ErrFile                  = LoadErrorType.Code("failed to open file")
	ErrElfParse              = LoadErrorType.Code("the ELF file could not be parsed")
	ErrNoULogSection         = LoadErrorType.Code(".ulog section not found")
	ErrULogSectionCompressed = LoadErrorType.Code("ulog section is compressed, compressed sections are not supported")
	ErrNoSymbolTable         = LoadErrorType.Code("symbol table is missing")
	ErrMissingSymbol         = LoadErrorType.Code("cannot find symbol")
	ErrNoSystemId            = LoadErrorType.Code("cannot find system id")
	ErrElfSymbolParse        = LoadErrorType.Code("unable to process symbol")
)

// SymbolErrorType groups faults raised while interpreting one symbol's
// encoded name, wrapped with the offending symbol name by the caller.
var SymbolErrorType = er.NewErrorType("ulog.ElfSymbolParseError")

var (
	ErrSegmentCountMismatch   = SymbolErrorType.Code("incorrect amount of segments")
	ErrInvalidInteger         = SymbolErrorType.Code("invalid integer")
	ErrSplitSegment           = SymbolErrorType.Code("unable to split symbol name")
	ErrSeverityLevelParse     = SymbolErrorType.Code("failed to parse severity level")
	ErrNoMatchingLogLevel     = SymbolErrorType.Code("id not in range for any severity level")
	ErrULogArgumentParse      = SymbolErrorType.Code("failed to parse argument")
	ErrOrphanedArguments      = SymbolErrorType.Code("ran out of messages to attribute arguments to")
	ErrTemplateParse          = SymbolErrorType.Code("invalid template string")
	ErrNonArgumentInArguments = SymbolErrorType.Code("a non argument was found in the argument section")
)

var severityLevelNames = [9]string{
	"emergency", "alert", "critical", "error", "warning", "notice", "info", "debug", "trace",
}

// elfSymbol is one symbol confined to the .ulog section, with its name
// already resolved through the symbol string table.
type elfSymbol struct {
	value uint64
	name  string
}

// member is a sub-section element: a symbol whose name begins with
// "__ulog_sym_" and whose address falls within a sub-section's [start,
// end) range. meta is the name with that prefix stripped; relPos is its
// address relative to the sub-section start, used as the member's id.
type member struct {
	value  uint64
	relPos uint64
	meta   string
}

type messageKey struct {
	file   string
	line   uint32
	format string
}

// loader carries the per-file state threaded through the load pipeline:
// the raw .ulog section bytes, the image's declared endianness, and the
// symbols narrowed down to that section.
type loader struct {
	path     string
	data     []byte
	order    binary.ByteOrder
	symbols  []elfSymbol
	markers  []elfSymbol
	interner *fileInterner
}

// LoadELF opens the ELF file at path, locates its .ulog section, and
// reconstructs the full log dictionary for the one system it describes.
// This is the Dictionary Loader: symbol-table mining, sub-section
// boundary resolution, string/message/argument reconstruction, and
// argument-to-message pairing all happen here, grounded directly on the
// section-symbol convention described in the ELF contract.
func LoadELF(path string) (*Dictionary, er.R) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrFile.New(err.Error(), er.E(err))
	}
	defer f.Close()

	ef, err := elf.NewFile(f)
	if err != nil {
		return nil, ErrElfParse.New(err.Error(), er.E(err))
	}

	sectionIndex := -1
	var section *elf.Section
	for i, s := range ef.Sections {
		if s.Name == ".ulog" {
			sectionIndex = i
			section = s
			break
		}
	}
	if section == nil {
		return nil, ErrNoULogSection.Default()
	}
	if section.Flags&elf.SHF_COMPRESSED != 0 {
		return nil, ErrULogSectionCompressed.Default()
	}
	data, err := section.Data()
	if err != nil {
		return nil, ErrElfParse.New(err.Error(), er.E(err))
	}

	symbols, err := ef.Symbols()
	if err != nil {
		if errors.Is(err, elf.ErrNoSymbols) {
			return nil, ErrNoSymbolTable.Default()
		}
		return nil, ErrElfParse.New(err.Error(), er.E(err))
	}

	var inSection []elfSymbol
	for _, sym := range symbols {
		if int(sym.Section) == sectionIndex {
			inSection = append(inSection, elfSymbol{value: sym.Value, name: sym.Name})
		}
	}

	var markers []elfSymbol
	for _, sym := range inSection {
		if strings.HasPrefix(sym.name, "_sulog_") || strings.HasPrefix(sym.name, "_eulog_") {
			markers = append(markers, sym)
		}
	}

	l := &loader{
		path:     path,
		data:     data,
		order:    ef.ByteOrder,
		symbols:  inSection,
		markers:  markers,
		interner: newFileInterner(),
	}
	return l.load()
}

func (l *loader) load() (*Dictionary, er.R) {
	strTable, err := l.parseStrings()
	if err != nil {
		return nil, err
	}

	bounds, err := l.severityBounds()
	if err != nil {
		return nil, err
	}

	byID, byKey, err := l.parseMessages(bounds)
	if err != nil {
		return nil, err
	}

	if err := l.parseArguments(byKey); err != nil {
		return nil, err
	}

	systemID, err := l.readSystemID()
	if err != nil {
		return nil, err
	}

	return &Dictionary{
		Path:     l.path,
		Info:     ULogSystemInfo{SystemID: systemID},
		Strings:  strTable,
		Messages: byID,
	}, nil
}

// findMarker looks up one exact boundary symbol name among the
// _sulog_/_eulog_-prefixed markers collected for this file.
func (l *loader) findMarker(name string) (uint64, er.R) {
	for _, m := range l.markers {
		if m.name == name {
			return m.value, nil
		}
	}
	return 0, ErrMissingSymbol.New(name, nil)
}

// subsection returns the __ulog_sym_-prefixed members whose address falls
// within [start, end) of the sub-section named name, where start and end
// come from the _sulog_<name>/_eulog_<name> marker pair.
func (l *loader) subsection(name string) ([]member, er.R) {
	start, err := l.findMarker("_sulog_" + name)
	if err != nil {
		return nil, err
	}
	end, err := l.findMarker("_eulog_" + name)
	if err != nil {
		return nil, err
	}
	var members []member
	for _, sym := range l.symbols {
		if sym.value < start || sym.value >= end {
			continue
		}
		meta, ok := strings.CutPrefix(sym.name, "__ulog_sym_")
		if !ok {
			continue
		}
		members = append(members, member{value: sym.value, relPos: sym.value - start, meta: meta})
	}
	return members, nil
}

// severityBounds resolves the nine ascending _eulog_level_* markers that
// partition the "level" sub-section into severities.
func (l *loader) severityBounds() ([9]uint64, er.R) {
	var bounds [9]uint64
	for i, name := range severityLevelNames {
		v, err := l.findMarker("_eulog_level_" + name)
		if err != nil {
			return bounds, err
		}
		bounds[i] = v
	}
	return bounds, nil
}

// severityForAddress finds the smallest index i for which addr is
// strictly less than bounds[i] (an address exactly on a marker belongs to
// the next, less urgent level) and maps that index to a SeverityLevel.
func severityForAddress(bounds [9]uint64, addr uint64) (SeverityLevel, er.R) {
	for i, bound := range bounds {
		if addr < bound {
			lvl, serr := severityFromIndex(i)
			if serr != nil {
				return 0, ErrSeverityLevelParse.New("", serr)
			}
			return lvl, nil
		}
	}
	return 0, ErrNoMatchingLogLevel.Default()
}

// splitName runs the segment splitter over a member's encoded metadata
// and checks it produced exactly the expected field count.
func splitName(meta string, expected int) ([]string, er.R) {
	fields, err := splitter.Split(meta, '_')
	if err != nil {
		return nil, ErrSplitSegment.New("", err)
	}
	if len(fields) != expected {
		return nil, ErrSegmentCountMismatch.New(fmt.Sprintf("expected %d, got %d", expected, len(fields)), nil)
	}
	return fields, nil
}

func parseLine(s string) (uint32, er.R) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, ErrInvalidInteger.New(err.Error(), er.E(err))
	}
	return uint32(v), nil
}

func keyFor(loc Location, format string) messageKey {
	return messageKey{file: *loc.File, line: loc.Line, format: format}
}

// parseStrings builds the string table, keyed by each string's relative
// offset within the "string" sub-section (step 6).
func (l *loader) parseStrings() (map[uint16]*ULogString, er.R) {
	members, err := l.subsection("string")
	if err != nil {
		return nil, err
	}
	result := make(map[uint16]*ULogString, len(members))
	for _, m := range members {
		fields, ferr := splitName(m.meta, 3)
		if ferr != nil {
			return nil, wrapSymbolError(m.meta, ferr)
		}
		line, lerr := parseLine(fields[1])
		if lerr != nil {
			return nil, wrapSymbolError(m.meta, lerr)
		}
		id := uint16(m.relPos)
		result[id] = &ULogString{
			ID:       id,
			Value:    fields[2],
			Location: Location{File: l.interner.intern(fields[0]), Line: line},
		}
	}
	return result, nil
}

// parseMessages builds the message table, keyed both by relative offset
// (the wire message id) and by declaration-site identity, the latter
// used only transiently to pair up arguments (step 7).
func (l *loader) parseMessages(bounds [9]uint64) (map[uint16]*ULogMessage, map[messageKey]*ULogMessage, er.R) {
	members, err := l.subsection("level")
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uint16]*ULogMessage, len(members))
	byKey := make(map[messageKey]*ULogMessage, len(members))
	for _, m := range members {
		fields, ferr := splitName(m.meta, 3)
		if ferr != nil {
			return nil, nil, wrapSymbolError(m.meta, ferr)
		}
		line, lerr := parseLine(fields[1])
		if lerr != nil {
			return nil, nil, wrapSymbolError(m.meta, lerr)
		}
		loc := Location{File: l.interner.intern(fields[0]), Line: line}

		sev, serr := severityForAddress(bounds, m.value)
		if serr != nil {
			return nil, nil, wrapSymbolError(m.meta, serr)
		}

		tmpl, terr := template.Compile(fields[2])
		if terr != nil {
			return nil, nil, wrapSymbolError(m.meta, ErrTemplateParse.New(fields[2], terr))
		}

		msg := &ULogMessage{
			ID:       uint16(m.relPos),
			Severity: sev,
			Template: tmpl,
			Location: loc,
		}
		byID[msg.ID] = msg
		byKey[keyFor(loc, fields[2])] = msg
	}
	return byID, byKey, nil
}

type pendingArgument struct {
	seq int
	arg Argument
}

// parseArguments builds each argument skeleton, groups them by their
// owning message's declaration-site identity, sorts each group by the
// embedded sequence number (declaration order), and appends them to the
// already-built messages (steps 8-9). A group with no matching message
// is an OrphanedArguments failure.
func (l *loader) parseArguments(byKey map[messageKey]*ULogMessage) er.R {
	members, err := l.subsection("argument")
	if err != nil {
		return err
	}

	grouped := make(map[messageKey][]pendingArgument)
	var order []messageKey
	for _, m := range members {
		fields, ferr := splitName(m.meta, 5)
		if ferr != nil {
			return wrapSymbolError(m.meta, ferr)
		}
		if fields[3] != "arg" {
			return wrapSymbolError(m.meta, ErrNonArgumentInArguments.Default())
		}
		line, lerr := parseLine(fields[1])
		if lerr != nil {
			return wrapSymbolError(m.meta, lerr)
		}
		seq, serr := strconv.Atoi(fields[4])
		if serr != nil {
			return wrapSymbolError(m.meta, ErrInvalidInteger.New(serr.Error(), er.E(serr)))
		}

		typeIDVal, rerr := l.readUintAt(m.value, 1)
		if rerr != nil {
			return wrapSymbolError(m.meta, rerr)
		}
		arg, aerr := NewArgumentFromTypeID(uint8(typeIDVal))
		if aerr != nil {
			return wrapSymbolError(m.meta, ErrULogArgumentParse.New("", aerr))
		}

		key := messageKey{file: fields[0], line: line, format: fields[2]}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], pendingArgument{seq: seq, arg: arg})
	}

	for _, key := range order {
		pending := grouped[key]
		sort.SliceStable(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })

		msg, ok := byKey[key]
		if !ok {
			return ErrOrphanedArguments.New(fmt.Sprintf("%s:%d %q", key.file, key.line, key.format), nil)
		}
		for _, p := range pending {
			msg.AppendArg(p.arg)
		}
	}
	return nil
}

// readSystemID finds the "meta" sub-section member tagged system_id and
// reads its 16-bit value from the section bytes (step 10).
func (l *loader) readSystemID() (uint16, er.R) {
	members, err := l.subsection("meta")
	if err != nil {
		return 0, err
	}
	for _, m := range members {
		if m.meta == "system_id" {
			v, rerr := l.readUintAt(m.value, 2)
			if rerr != nil {
				return 0, rerr
			}
			return uint16(v), nil
		}
	}
	return 0, ErrNoSystemId.Default()
}

// readUintAt reads a width-byte unsigned integer at addr within the
// section bytes, using the image's declared endianness. width 1 is a
// plain byte read (endianness is a no-op there, as for the argument type
// id byte); width 2 is used for the system id.
func (l *loader) readUintAt(addr uint64, width int) (uint64, er.R) {
	if addr+uint64(width) > uint64(len(l.data)) {
		return 0, ErrElfParse.New("read past end of .ulog section", nil)
	}
	switch width {
	case 1:
		return uint64(l.data[addr]), nil
	case 2:
		return uint64(l.order.Uint16(l.data[addr:])), nil
	default:
		panic("readUintAt: unsupported width")
	}
}

// wrapSymbolError attaches the offending symbol's decoded metadata as
// context to an error raised while interpreting it, mirroring the
// per-symbol diagnostic context a dictionary-load fatal error report
// carries through to the top-level chained cause message.
func wrapSymbolError(name string, err er.R) er.R {
	if err == nil {
		return nil
	}
	return ErrElfSymbolParse.New(name, err)
}
