package agent

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/Stoneeu/vibe-kanban/internal/logging"
)

// maxLineSize bounds a single stream-JSON line. Longer lines are skipped.
const maxLineSize = 1024 * 1024

// ParseStream reads stream-JSON lines from r and sends parsed Events on the
// returned channel. The channel is closed when r reaches EOF or an error.
// Lines that are not JSON or exceed maxLineSize are skipped; r is always
// read to the end so a subprocess writing to it never blocks.
func ParseStream(r io.Reader) <-chan Event {
	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		br := bufio.NewReaderSize(r, 64*1024)
		for {
			line, tooLong, err := readLine(br, maxLineSize)
			if tooLong {
				logging.Default().Warn("agent: skipping oversized stream line", "limit", maxLineSize)
			} else if len(line) > 0 {
				for _, ev := range parseLine(line) {
					ch <- ev
				}
			}
			if err != nil {
				if err != io.EOF {
					_, _ = io.Copy(io.Discard, r)
				}
				return
			}
		}
	}()
	return ch
}

// readLine returns the next line without its trailing newline. A line
// longer than limit is consumed and reported as tooLong with no content.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		frag, err := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(frag) > limit+1 {
				tooLong, line = true, nil
			} else {
				line = append(line, frag...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return bytes.TrimRight(line, "\r\n"), tooLong, err
	}
}

// streamMessage is the top-level JSON object of a stream-json line.
type streamMessage struct {
	Type      string          `json:"type"`
	Subtype   string          `json:"subtype"`
	SessionID string          `json:"session_id"`
	Message   *messageContent `json:"message"`
	// type=result
	CostUSD      float64 `json:"cost_usd"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	Duration     float64 `json:"duration_ms"`
	Result       string  `json:"result"`
	// type=system, subtype=error
	Error string `json:"error"`
}

type messageContent struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

func parseLine(line []byte) []Event {
	var msg streamMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil
	}

	switch msg.Type {
	case "system":
		switch msg.Subtype {
		case "init":
			if msg.SessionID != "" {
				return []Event{SessionEvent(msg.SessionID)}
			}
		case "error":
			return []Event{ErrorEvent(msg.Error)}
		}
	case "assistant":
		return parseAssistantMessage(msg)
	case "result":
		cost := msg.CostUSD
		if cost == 0 {
			cost = msg.TotalCostUSD
		}
		return []Event{ResultEvent(cost, msg.Duration/1000, msg.Subtype)}
	}
	return nil
}

func parseAssistantMessage(msg streamMessage) []Event {
	if msg.Message == nil {
		return nil
	}

	var events []Event
	for _, block := range msg.Message.Content {
		switch block.Type {
		case "tool_use":
			events = append(events, ToolUseEvent(block.Name, block.Input))
		case "text":
			if block.Text != "" {
				events = append(events, TextEvent(block.Text))
			}
		}
	}
	return events
}
