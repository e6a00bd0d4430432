// Goroutine dump for the threaddump endpoint.

package agent

import (
	"regexp"
	"runtime"
	"strconv"
	"strings"
)

// StackFrame is one frame of a goroutine's stack.
type StackFrame struct {
	MethodName string `json:"methodName"`
	FileName   string `json:"fileName,omitempty"`
	LineNumber int    `json:"lineNumber,omitempty"`
}

// Thread describes one live goroutine.
type Thread struct {
	ThreadName  string       `json:"threadName"`
	ThreadID    int64        `json:"threadId"`
	ThreadState string       `json:"threadState"`
	StackTrace  []StackFrame `json:"stackTrace"`
}

// ThreadDump is the response shape of the threaddump endpoint.
type ThreadDump struct {
	Threads []Thread `json:"threads"`
}

var goroutineHeader = regexp.MustCompile(`^goroutine (\d+) \[([^\]]+)\]:$`)

// ThreadDump snapshots all live goroutines with their states and stacks.
func (e *Engine) ThreadDump() ThreadDump {
	// Grow the buffer until the full dump fits.
	buf := make([]byte, 1<<16)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, len(buf)*2)
	}
	return parseStackDump(string(buf))
}

// parseStackDump converts runtime.Stack output into structured threads.
// Each goroutine block starts with "goroutine N [state]:" followed by frame
// pairs: a function line, then an indented "file:line" location.
func parseStackDump(dump string) ThreadDump {
	td := ThreadDump{Threads: []Thread{}}

	for _, block := range strings.Split(strings.TrimSpace(dump), "\n\n") {
		lines := strings.Split(block, "\n")
		m := goroutineHeader.FindStringSubmatch(lines[0])
		if m == nil {
			continue
		}
		id, _ := strconv.ParseInt(m[1], 10, 64)
		thread := Thread{
			ThreadName:  "goroutine-" + m[1],
			ThreadID:    id,
			ThreadState: m[2],
			StackTrace:  []StackFrame{},
		}

		for i := 1; i < len(lines); i++ {
			line := lines[i]
			if strings.HasPrefix(line, "\t") {
				continue
			}
			frame := StackFrame{MethodName: methodName(line)}
			if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "\t") {
				frame.FileName, frame.LineNumber = parseLocation(lines[i+1])
			}
			thread.StackTrace = append(thread.StackTrace, frame)
		}
		td.Threads = append(td.Threads, thread)
	}
	return td
}

// methodName strips the argument list from a stack function line, e.g.
// "main.work(0xc000012345)" -> "main.work". The last "(" starts the argument
// list; earlier ones can belong to a receiver type like "(*T)".
func methodName(line string) string {
	if !strings.HasSuffix(line, ")") {
		return line
	}
	if idx := strings.LastIndex(line, "("); idx > 0 {
		return line[:idx]
	}
	return line
}

// parseLocation splits "\t/path/file.go:123 +0x1d" into file and line.
func parseLocation(line string) (string, int) {
	loc := strings.TrimSpace(line)
	if idx := strings.Index(loc, " "); idx > 0 {
		loc = loc[:idx]
	}
	idx := strings.LastIndex(loc, ":")
	if idx < 0 {
		return loc, 0
	}
	n, err := strconv.Atoi(loc[idx+1:])
	if err != nil {
		return loc, 0
	}
	return loc[:idx], n
}
