package ingest

import (
	"fmt"
	"strings"
)

// Side identifies which archive member an error refers to.
type Side string

const (
	SideHeader Side = "cabecalho"
	SideItems  Side = "itens"
)

// UnreadableFileError reports a path that does not exist, cannot be read or
// is empty.
type UnreadableFileError struct {
	Path string
	Err  error
}

func (e *UnreadableFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable file %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("unreadable file %s: file is empty", e.Path)
}

func (e *UnreadableFileError) Unwrap() error { return e.Err }

// MalformedInputError reports bytes that could not be parsed as delimited
// tabular text under any attempted delimiter convention.
type MalformedInputError struct {
	Path       string
	Delimiters []string
	Err        error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input %s: not parseable with delimiters [%s]: %v",
		e.Path, strings.Join(e.Delimiters, " "), e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// ArchiveStructureError reports a ZIP whose membership does not match the
// required header/items pair.
type ArchiveStructureError struct {
	Path     string
	Expected []string
	Found    []string
	Err      error
}

func (e *ArchiveStructureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid archive %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("invalid archive %s: expected members [%s], found [%s]",
		e.Path, strings.Join(e.Expected, " "), strings.Join(e.Found, " "))
}

func (e *ArchiveStructureError) Unwrap() error { return e.Err }

// MissingJoinKeyError reports that the join key column is absent, after
// normalization, from one or both archive members.
type MissingJoinKeyError struct {
	Path        string
	Key         string
	MissingFrom []Side
}

func (e *MissingJoinKeyError) Error() string {
	sides := make([]string, len(e.MissingFrom))
	for i, s := range e.MissingFrom {
		sides[i] = string(s)
	}
	return fmt.Sprintf("archive %s: join key column %q missing from: %s",
		e.Path, e.Key, strings.Join(sides, ", "))
}

// JoinProducedEmptyResultError is a warning-level condition: the join ran
// but no key value appeared on both sides. The merged (empty) table is still
// returned next to it; callers decide whether to keep or reject it.
type JoinProducedEmptyResultError struct {
	Path       string
	Key        string
	HeaderRows int
	ItemsRows  int
}

func (e *JoinProducedEmptyResultError) Error() string {
	return fmt.Sprintf("archive %s: join on %q produced no rows (%d header rows, %d item rows, no key overlap)",
		e.Path, e.Key, e.HeaderRows, e.ItemsRows)
}
