package extractors

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/miradorstack/reconcile-timeline/internal/models"
	"github.com/miradorstack/reconcile-timeline/internal/utils"
)

// headerPattern matches "[<timestamp>] [<level>] " where the timestamp is empty or date shaped.
// Bracketed body text such as vector dumps stays a continuation line. The fraction length is
// validated separately so a wrong-precision or empty timestamp is reported, not folded into a body.
var headerPattern = regexp.MustCompile(`^\[(|\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d+)\] \[([^\]]*)\] ?`)

const maxLineBytes = 16 << 20

// Reassembler folds spdlog-style line streams into multi-line records.
type Reassembler struct {
	loc *time.Location
}

// NewReassembler constructs a Reassembler interpreting header timestamps in loc (UTC when nil).
func NewReassembler(loc *time.Location) *Reassembler {
	if loc == nil {
		loc = time.UTC
	}
	return &Reassembler{loc: loc}
}

// Reassemble groups lines into records. Lines before the first header are discarded. Malformed
// headers are returned as a joined error next to the records that did parse; the malformed record
// and its continuation lines are dropped.
func (r *Reassembler) Reassemble(process models.Process, lines []string) ([]models.LogRecord, error) {
	b := r.newBuilder(process)
	for i, line := range lines {
		b.feed(i+1, line)
	}
	return b.finish()
}

// ReassembleReader streams lines from rd. Read failures abort; malformed headers do not.
func (r *Reassembler) ReassembleReader(process models.Process, rd io.Reader) ([]models.LogRecord, error) {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	b := r.newBuilder(process)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		b.feed(lineNo, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s log: %w", process, err)
	}
	return b.finish()
}

func (r *Reassembler) newBuilder(process models.Process) *recordBuilder {
	return &recordBuilder{process: process, loc: r.loc}
}

type recordBuilder struct {
	process   models.Process
	loc       *time.Location
	records   []models.LogRecord
	malformed []error

	open    bool
	current models.LogRecord
	body    strings.Builder
}

// feed consumes one line. A trailing carriage return is dropped so CRLF files give the same
// bodies whichever entry point read them.
func (b *recordBuilder) feed(lineNo int, line string) {
	line = strings.TrimSuffix(line, "\r")
	m := headerPattern.FindStringSubmatchIndex(line)
	if m == nil {
		if b.open {
			b.body.WriteByte('\n')
			b.body.WriteString(line)
		}
		return
	}

	b.flush()

	rawTS := line[m[2]:m[3]]
	ts, err := utils.ParseLogTimestamp(rawTS, b.loc)
	if err != nil {
		b.malformed = append(b.malformed, &utils.MalformedLogRecordError{
			Source: b.process.String(),
			Line:   lineNo,
			Header: line[:m[1]],
			Err:    err,
		})
		return
	}

	b.open = true
	b.current = models.LogRecord{
		Timestamp: ts,
		Level:     line[m[4]:m[5]],
		Process:   b.process,
		Line:      lineNo,
	}
	b.body.Reset()
	b.body.WriteString(line[m[1]:])
}

func (b *recordBuilder) flush() {
	if !b.open {
		return
	}
	b.current.Body = b.body.String()
	b.records = append(b.records, b.current)
	b.open = false
	b.body.Reset()
}

func (b *recordBuilder) finish() ([]models.LogRecord, error) {
	b.flush()
	return b.records, errors.Join(b.malformed...)
}
