package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Protocol limits.
const (
	// MaxArrayLen limits the number of elements in a RESP array.
	MaxArrayLen = 1024

	// MaxBulkLen limits the size of a single bulk string (512KB).
	MaxBulkLen = 512 * 1024

	// MaxInlineLen limits inline command and simple reply line length (4KB).
	MaxInlineLen = 4 * 1024

	// MaxDepth limits nesting of array replies.
	MaxDepth = 8

	// headerLen bounds "*<n>\r\n", "$<n>\r\n" and ":<n>\r\n" lines.
	headerLen = 64
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// Kind is the RESP type marker of a reply.
type Kind byte

const (
	KindSimple  Kind = '+'
	KindError   Kind = '-'
	KindInteger Kind = ':'
	KindBulk    Kind = '$'
	KindArray   Kind = '*'
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Reply is one decoded server reply.
type Reply struct {
	Kind  Kind
	Str   string  // simple string or error text
	Int   int64   // integer reply
	Bulk  []byte  // bulk payload, nil when Null
	Array []Reply // array elements, nil when Null
	Null  bool    // $-1 or *-1
}

// Text renders the reply for display.
func (r Reply) Text() string {
	switch r.Kind {
	case KindSimple:
		return r.Str
	case KindError:
		return "(error) " + r.Str
	case KindInteger:
		return strconv.FormatInt(r.Int, 10)
	case KindBulk:
		if r.Null {
			return "(nil)"
		}
		return string(r.Bulk)
	case KindArray:
		if r.Null {
			return "(nil)"
		}
		parts := make([]string, len(r.Array))
		for i, e := range r.Array {
			parts[i] = e.Text()
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return ""
	}
}

// WriteCommand encodes args as an array of bulk strings. The writer is
// not flushed.
func WriteCommand(w *bufio.Writer, args ...[]byte) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: empty command", ErrProtocol)
	}
	if len(args) > MaxArrayLen {
		return fmt.Errorf("%w: %d arguments exceeds limit %d", ErrLimitExceeded, len(args), MaxArrayLen)
	}
	if err := WriteArrayHeader(w, len(args)); err != nil {
		return err
	}
	for _, a := range args {
		if a == nil {
			a = []byte{}
		}
		if err := WriteBulk(w, a); err != nil {
			return err
		}
	}
	return nil
}

// ReadReply decodes one reply.
func ReadReply(r *bufio.Reader) (Reply, error) {
	return readReply(r, 0)
}

func readReply(r *bufio.Reader, depth int) (Reply, error) {
	if depth > MaxDepth {
		return Reply{}, fmt.Errorf("%w: nesting exceeds limit %d", ErrLimitExceeded, MaxDepth)
	}

	b, err := r.Peek(1)
	if err != nil {
		return Reply{}, err
	}

	switch Kind(b[0]) {
	case KindSimple, KindError:
		line, err := readLine(r, MaxInlineLen)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Kind: Kind(line[0]), Str: line[1:]}, nil

	case KindInteger:
		line, err := readLine(r, headerLen)
		if err != nil {
			return Reply{}, err
		}
		n, err := strconv.ParseInt(line[1:], 10, 64)
		if err != nil {
			return Reply{}, fmt.Errorf("%w: invalid integer", ErrProtocol)
		}
		return Reply{Kind: KindInteger, Int: n}, nil

	case KindBulk:
		bulk, err := readBulkString(r)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Kind: KindBulk, Bulk: bulk, Null: bulk == nil}, nil

	case KindArray:
		n, err := readArrayHeader(r)
		if err != nil {
			return Reply{}, err
		}
		if n < 0 {
			return Reply{Kind: KindArray, Null: true}, nil
		}
		out := make([]Reply, 0, n)
		for i := 0; i < n; i++ {
			e, err := readReply(r, depth+1)
			if err != nil {
				return Reply{}, err
			}
			out = append(out, e)
		}
		return Reply{Kind: KindArray, Array: out}, nil

	default:
		return Reply{}, fmt.Errorf("%w: unexpected type byte %q", ErrProtocol, b[0])
	}
}

// ReadCommand decodes one client command in array or inline form. An
// empty or null array and a blank inline line yield nil args.
func ReadCommand(r *bufio.Reader) ([][]byte, error) {
	b, err := r.Peek(1)
	if err != nil {
		return nil, err
	}

	if b[0] != '*' {
		line, err := readLine(r, MaxInlineLen)
		if err != nil {
			return nil, err
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			return nil, nil
		}
		out := make([][]byte, 0, len(parts))
		for _, p := range parts {
			out = append(out, []byte(p))
		}
		return out, nil
	}

	n, err := readArrayHeader(r)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		arg, err := readBulkString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}

// readArrayHeader returns the element count, -1 for a null array.
func readArrayHeader(r *bufio.Reader) (int, error) {
	line, err := readLine(r, headerLen)
	if err != nil {
		return 0, err
	}
	if len(line) < 2 || line[0] != '*' {
		return 0, fmt.Errorf("%w: expected array", ErrProtocol)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil || n < -1 {
		return 0, fmt.Errorf("%w: invalid array length", ErrProtocol)
	}
	if n > MaxArrayLen {
		return 0, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, MaxArrayLen)
	}
	return n, nil
}

// readBulkString returns nil for a null bulk string.
func readBulkString(r *bufio.Reader) ([]byte, error) {
	line, err := readLine(r, headerLen)
	if err != nil {
		return nil, err
	}
	if len(line) < 2 || line[0] != '$' {
		return nil, fmt.Errorf("%w: expected bulk string", ErrProtocol)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil || n < -1 {
		return nil, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
	}
	if n == -1 {
		return nil, nil
	}
	if n > MaxBulkLen {
		return nil, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, MaxBulkLen)
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(buf, []byte("\r\n")) {
		return nil, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	return buf[:n], nil
}

func readLine(r *bufio.Reader, maxLen int) (string, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		buf = append(buf, frag...)
		if len(buf) > maxLen {
			return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return "", err
	}

	if len(buf) < 2 || !bytes.HasSuffix(buf, []byte("\r\n")) {
		return "", fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return string(buf[:len(buf)-2]), nil
}

func WriteSimpleString(w *bufio.Writer, s string) error {
	_, err := w.WriteString("+" + s + "\r\n")
	return err
}

func WriteError(w *bufio.Writer, s string) error {
	_, err := w.WriteString("-" + s + "\r\n")
	return err
}

func WriteInteger(w *bufio.Writer, n int64) error {
	_, err := w.WriteString(":" + strconv.FormatInt(n, 10) + "\r\n")
	return err
}

func WriteNullBulk(w *bufio.Writer) error {
	_, err := w.WriteString("$-1\r\n")
	return err
}

// WriteBulk writes b as a bulk string; nil is written as the null bulk.
func WriteBulk(w *bufio.Writer, b []byte) error {
	if b == nil {
		return WriteNullBulk(w)
	}
	if _, err := w.WriteString("$" + strconv.Itoa(len(b)) + "\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}

func WriteBulkString(w *bufio.Writer, s string) error {
	return WriteBulk(w, []byte(s))
}

func WriteArrayHeader(w *bufio.Writer, n int) error {
	_, err := w.WriteString("*" + strconv.Itoa(n) + "\r\n")
	return err
}

// CommandName returns the upper-cased command name of args.
func CommandName(args [][]byte) string {
	if len(args) == 0 {
		return ""
	}
	return strings.ToUpper(string(args[0]))
}
