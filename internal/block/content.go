package block

import (
	"encoding/binary"
	"fmt"
)

// ContentTag is the stable discriminant for a block's content variant, used
// in both the hash preimage and the on-disk frame so that the binary format
// stays forward/backward compatible as variants are added (spec.md §9).
type ContentTag uint8

const (
	TagText ContentTag = iota
	TagFile
	TagTool
	TagDecision
	TagSession
	TagBoundary
)

// FileOp enumerates the filesystem operations a File content variant can
// record.
type FileOp uint8

const (
	FileRead FileOp = iota
	FileWrite
	FileDelete
	FileRename
)

func (o FileOp) String() string {
	switch o {
	case FileRead:
		return "read"
	case FileWrite:
		return "write"
	case FileDelete:
		return "delete"
	case FileRename:
		return "rename"
	default:
		return "unknown"
	}
}

// SessionKind distinguishes the start/end of a Session content variant.
type SessionKind uint8

const (
	SessionStart SessionKind = iota
	SessionEnd
)

// BoundaryKind distinguishes why a Boundary block was inserted.
type BoundaryKind uint8

const (
	BoundaryIdle BoundaryKind = iota
	BoundaryTopic
	BoundarySession
)

// Content is the tagged-sum payload every block carries. Each concrete type
// below implements it.
type Content interface {
	Tag() ContentTag
	// canonical appends a deterministic, self-delimiting encoding of the
	// content to buf. It is the sole input (besides prev_hash, sequence and
	// timestamp) to the block's hash, and is also the body written to the
	// .imem frame.
	canonical(buf []byte) []byte
}

// Decode reads a tagged content payload back out of a canonical encoding.
func Decode(b []byte) (Content, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("content: empty payload")
	}
	tag := ContentTag(b[0])
	body := b[1:]
	switch tag {
	case TagText:
		return decodeText(body)
	case TagFile:
		return decodeFile(body)
	case TagTool:
		return decodeTool(body)
	case TagDecision:
		return decodeDecision(body)
	case TagSession:
		return decodeSession(body)
	case TagBoundary:
		return decodeBoundary(body)
	default:
		return nil, fmt.Errorf("content: unknown tag %d", tag)
	}
}

// Canonical returns the full canonical encoding (tag byte + body) of c.
func Canonical(c Content) []byte {
	buf := []byte{byte(c.Tag())}
	return c.canonical(buf)
}

// --- length-prefixed string helpers, shared by every variant ---

func putString(buf []byte, s string) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, s...)
	return buf
}

func readString(b []byte) (string, []byte, error) {
	if len(b) < 4 {
		return "", nil, fmt.Errorf("content: truncated string length")
	}
	n := binary.LittleEndian.Uint32(b[:4])
	b = b[4:]
	if uint64(len(b)) < uint64(n) {
		return "", nil, fmt.Errorf("content: truncated string body")
	}
	return string(b[:n]), b[n:], nil
}

func putStrings(buf []byte, ss []string) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(ss)))
	buf = append(buf, lenBuf[:]...)
	for _, s := range ss {
		buf = putString(buf, s)
	}
	return buf
}

func readStrings(b []byte) ([]string, []byte, error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("content: truncated string count")
	}
	n := binary.LittleEndian.Uint32(b[:4])
	b = b[4:]
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		var s string
		var err error
		s, b, err = readString(b)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, s)
	}
	return out, b, nil
}

// --- Text ---

// Text is a plain text entry, optionally tagged for retrieval.
type Text struct {
	Text string
	Tags []string
}

func (Text) Tag() ContentTag { return TagText }

func (t Text) canonical(buf []byte) []byte {
	buf = putString(buf, t.Text)
	buf = putStrings(buf, t.Tags)
	return buf
}

func decodeText(b []byte) (Content, error) {
	text, b, err := readString(b)
	if err != nil {
		return nil, err
	}
	tags, _, err := readStrings(b)
	if err != nil {
		return nil, err
	}
	return Text{Text: text, Tags: tags}, nil
}

// File records a filesystem operation, with content present only for
// Read/Write.
type File struct {
	Path    string
	Op      FileOp
	Content string // empty when the op does not carry a body
	HasBody bool
}

func (File) Tag() ContentTag { return TagFile }

func (f File) canonical(buf []byte) []byte {
	buf = putString(buf, f.Path)
	buf = append(buf, byte(f.Op))
	if f.HasBody {
		buf = append(buf, 1)
		buf = putString(buf, f.Content)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func decodeFile(b []byte) (Content, error) {
	path, b, err := readString(b)
	if err != nil {
		return nil, err
	}
	if len(b) < 2 {
		return nil, fmt.Errorf("content: truncated file op/flag")
	}
	op := FileOp(b[0])
	hasBody := b[1] != 0
	b = b[2:]
	var content string
	if hasBody {
		content, _, err = readString(b)
		if err != nil {
			return nil, err
		}
	}
	return File{Path: path, Op: op, Content: content, HasBody: hasBody}, nil
}

// Tool records a tool invocation and its result.
type Tool struct {
	ToolName string
	Args     string
	Result   string
}

func (Tool) Tag() ContentTag { return TagTool }

func (t Tool) canonical(buf []byte) []byte {
	buf = putString(buf, t.ToolName)
	buf = putString(buf, t.Args)
	buf = putString(buf, t.Result)
	return buf
}

func decodeTool(b []byte) (Content, error) {
	name, b, err := readString(b)
	if err != nil {
		return nil, err
	}
	args, b, err := readString(b)
	if err != nil {
		return nil, err
	}
	result, _, err := readString(b)
	if err != nil {
		return nil, err
	}
	return Tool{ToolName: name, Args: args, Result: result}, nil
}

// Decision records a decision and the rationale behind it.
type Decision struct {
	Decision  string
	Rationale string
}

func (Decision) Tag() ContentTag { return TagDecision }

func (d Decision) canonical(buf []byte) []byte {
	buf = putString(buf, d.Decision)
	buf = putString(buf, d.Rationale)
	return buf
}

func decodeDecision(b []byte) (Content, error) {
	decision, b, err := readString(b)
	if err != nil {
		return nil, err
	}
	rationale, _, err := readString(b)
	if err != nil {
		return nil, err
	}
	return Decision{Decision: decision, Rationale: rationale}, nil
}

// Session marks the start or end of a working session.
type Session struct {
	ID   string
	Kind SessionKind
}

func (Session) Tag() ContentTag { return TagSession }

func (s Session) canonical(buf []byte) []byte {
	buf = putString(buf, s.ID)
	buf = append(buf, byte(s.Kind))
	return buf
}

func decodeSession(b []byte) (Content, error) {
	id, b, err := readString(b)
	if err != nil {
		return nil, err
	}
	if len(b) < 1 {
		return nil, fmt.Errorf("content: truncated session kind")
	}
	return Session{ID: id, Kind: SessionKind(b[0])}, nil
}

// Boundary marks a segmentation point between episodes, topics, or idle gaps.
type Boundary struct {
	Kind BoundaryKind
}

func (Boundary) Tag() ContentTag { return TagBoundary }

func (bnd Boundary) canonical(buf []byte) []byte {
	return append(buf, byte(bnd.Kind))
}

func decodeBoundary(b []byte) (Content, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("content: truncated boundary kind")
	}
	return Boundary{Kind: BoundaryKind(b[0])}, nil
}
