package imapclient

import (
	"fmt"
	"strings"
)

// Code represents a response code with optional arguments, i.e. the data
// between [] in a response line.
type Code interface {
	CodeString() string
}

// CodeWord is a response code without parameters, always in upper case.
type CodeWord string

func (c CodeWord) CodeString() string { return string(c) }

// CodeParams is an unrecognized response code together with its
// space-separated arguments.
type CodeParams struct {
	Code string // Always in upper case.
	Args []string
}

func (c CodeParams) CodeString() string {
	return c.Code + " " + strings.Join(c.Args, " ")
}

// CodeCapability is a CAPABILITY response code with the capabilities
// supported by the server.
type CodeCapability []Capability

func (c CodeCapability) CodeString() string {
	var sb strings.Builder
	sb.WriteString("CAPABILITY")
	for _, cap := range c {
		sb.WriteByte(' ')
		sb.WriteString(string(cap))
	}
	return sb.String()
}

// CodeBadCharset lists the charsets a SEARCH could not use.
type CodeBadCharset []string

func (c CodeBadCharset) CodeString() string {
	if len(c) == 0 {
		return "BADCHARSET"
	}
	return "BADCHARSET (" + strings.Join(c, " ") + ")"
}

// CodePermanentFlags lists the flags a client may permanently set on
// messages in the selected mailbox.
type CodePermanentFlags []string

func (c CodePermanentFlags) CodeString() string {
	return "PERMANENTFLAGS (" + strings.Join(c, " ") + ")"
}

// CodeUIDNext is the next UID the server will assign in the selected
// mailbox.
type CodeUIDNext uint32

func (c CodeUIDNext) CodeString() string { return fmt.Sprintf("UIDNEXT %d", uint32(c)) }

// CodeUIDValidity is the UID validity of the selected mailbox.
type CodeUIDValidity uint32

func (c CodeUIDValidity) CodeString() string { return fmt.Sprintf("UIDVALIDITY %d", uint32(c)) }

// CodeUnseen is the sequence number of the first unseen message.
type CodeUnseen uint32

func (c CodeUnseen) CodeString() string { return fmt.Sprintf("UNSEEN %d", uint32(c)) }

// CodeAppendUID is the "APPENDUID" response code. ../rfc/4315:36
type CodeAppendUID struct {
	UIDValidity uint32
	UIDs        NumRange
}

func (c CodeAppendUID) CodeString() string {
	return fmt.Sprintf("APPENDUID %d %s", c.UIDValidity, c.UIDs.String())
}

// CodeCopyUID is the "COPYUID" response code. ../rfc/4315:56
type CodeCopyUID struct {
	DestUIDValidity uint32
	From            []NumRange
	To              []NumRange
}

func numRangesString(l []NumRange) string {
	var sb strings.Builder
	for i, e := range l {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(e.String())
	}
	return sb.String()
}

func (c CodeCopyUID) CodeString() string {
	return fmt.Sprintf("COPYUID %d %s %s", c.DestUIDValidity, numRangesString(c.From), numRangesString(c.To))
}

// CodeModified is a CONDSTORE response code listing UIDs/sequence numbers
// not modified due to an UNCHANGEDSINCE precondition.
type CodeModified NumSet

func (c CodeModified) CodeString() string { return fmt.Sprintf("MODIFIED %s", NumSet(c).String()) }

// CodeHighestModSeq reports the highest modseq of the selected mailbox, for
// CONDSTORE.
type CodeHighestModSeq int64

func (c CodeHighestModSeq) CodeString() string { return fmt.Sprintf("HIGHESTMODSEQ %d", int64(c)) }

// CodeInProgress reports progress of a long-running command. ../rfc/9585
type CodeInProgress struct {
	Tag     string // Empty if absent.
	Current *uint32
	Goal    *uint32
}

func (c CodeInProgress) CodeString() string {
	if c.Tag == "" && c.Current == nil && c.Goal == nil {
		return "INPROGRESS"
	}
	current, goal := "nil", "nil"
	if c.Current != nil {
		current = fmt.Sprintf("%d", *c.Current)
	}
	if c.Goal != nil {
		goal = fmt.Sprintf("%d", *c.Goal)
	}
	return fmt.Sprintf("INPROGRESS (%q %s %s)", c.Tag, current, goal)
}

// CodeBadEvent lists the events supported by the server, returned when a
// NOTIFY command names an unsupported event. ../rfc/5465:195
type CodeBadEvent []string

func (c CodeBadEvent) CodeString() string {
	return fmt.Sprintf("BADEVENT (%s)", strings.Join(c, " "))
}

// CodeMetadataLongEntries is returned by GETMETADATA when entries were
// truncated due to MAXSIZE.
type CodeMetadataLongEntries uint32

func (c CodeMetadataLongEntries) CodeString() string {
	return fmt.Sprintf("METADATA LONGENTRIES %d", uint32(c))
}

// CodeMetadataMaxSize is returned by SETMETADATA when a value exceeds the
// server's maximum entry size.
type CodeMetadataMaxSize uint32

func (c CodeMetadataMaxSize) CodeString() string {
	return fmt.Sprintf("METADATA (MAXSIZE %d)", uint32(c))
}

// CodeMetadataTooMany is returned by SETMETADATA when the server has too
// many annotations for the mailbox/server.
type CodeMetadataTooMany struct{}

func (c CodeMetadataTooMany) CodeString() string { return "METADATA (TOOMANY)" }

// CodeMetadataNoPrivate is returned by SETMETADATA when the server doesn't
// support private annotations.
type CodeMetadataNoPrivate struct{}

func (c CodeMetadataNoPrivate) CodeString() string { return "METADATA (NOPRIVATE)" }
