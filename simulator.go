package botengine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// DefaultSimulatorUser is the sender id used when none is configured.
const DefaultSimulatorUser = "simulator"

// Simulator drives an Engine from a line-oriented input, standing in for the
// messaging platform. "/select NAME" sends a selection, "/state" prints the
// stored session, "exit" or "quit" stops, and any other line is a text
// response. Emitted content is shown by the engine's Deliverer.
type Simulator struct {
	Input    io.Reader
	Output   io.Writer
	UserID   string
	Headless bool
}

// NewSimulator creates a Simulator reading from in and writing to out.
func NewSimulator(in io.Reader, out io.Writer) *Simulator {
	return &Simulator{
		Input:  in,
		Output: out,
		UserID: DefaultSimulatorUser,
	}
}

// Run executes the loop until EOF, an exit command or ctx is done.
func (s *Simulator) Run(ctx context.Context, engine *Engine) error {
	if s.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if s.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	user := s.UserID
	if user == "" {
		user = DefaultSimulatorUser
	}

	lines := bufio.NewReader(s.Input)
	if !s.Headless {
		fmt.Fprintln(s.Output, "--- botengine simulator (/select NAME, /state, exit) ---")
	}

	for seq := 1; ; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.Headless {
			fmt.Fprint(s.Output, "> ")
		}

		text, err := lines.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("input error: %w", err)
		}
		eof := err != nil
		line := strings.TrimSpace(text)

		switch {
		case line == "":
		case line == "exit" || line == "quit":
			fmt.Fprintln(s.Output, "Bye!")
			return nil
		case line == "/state":
			if err := s.printState(ctx, engine, user); err != nil {
				return err
			}
		default:
			if err := s.send(ctx, engine, parseLine(user, line, seq)); err != nil {
				return err
			}
		}

		if eof {
			return nil
		}
	}
}

// parseLine turns one input line into a raw platform event.
func parseLine(user, line string, seq int) domain.RawEvent {
	raw := domain.RawEvent{
		SenderID:      user,
		Kind:          domain.RawKindMessage,
		PayloadOrText: line,
		EventID:       fmt.Sprintf("sim-%d", seq),
	}
	if rest, ok := strings.CutPrefix(line, "/select "); ok {
		raw.Kind = domain.RawKindPostback
		raw.PayloadOrText = strings.TrimSpace(rest)
	}
	return raw
}

func (s *Simulator) send(ctx context.Context, engine *Engine, raw domain.RawEvent) error {
	res, err := engine.HandleEvent(ctx, raw)
	if err != nil {
		return err
	}
	switch {
	case res.Reason != nil:
		fmt.Fprintf(s.Output, "! %v\n", res.Reason)
	case res.Outcome == domain.OutcomeIgnored:
		fmt.Fprintln(s.Output, "! ignored")
	}
	for _, rec := range res.Records {
		fmt.Fprintf(s.Output, "+ %s %v\n", rec.Collection, rec.Fields)
	}
	return nil
}

func (s *Simulator) printState(ctx context.Context, engine *Engine, user string) error {
	state, err := engine.Session(ctx, user)
	if errors.Is(err, domain.ErrSessionNotFound) {
		fmt.Fprintln(s.Output, "(no session)")
		return nil
	}
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.Output, string(data))
	return nil
}
