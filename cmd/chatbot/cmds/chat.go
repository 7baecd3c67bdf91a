package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/kendrekaran/AI-Chatbots/pkg/classify"
	"github.com/kendrekaran/AI-Chatbots/pkg/conversation"
	"github.com/kendrekaran/AI-Chatbots/pkg/events"
	"github.com/kendrekaran/AI-Chatbots/pkg/session"
)

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE:  runChat,
	}

	cmd.Flags().String("settings", "", "settings file (YAML)")
	cmd.Flags().String("model", "", "model id")
	cmd.Flags().Float64("temperature", 0, "sampling temperature")
	cmd.Flags().Int("max-tokens", 0, "maximum response tokens")
	cmd.Flags().String("system-prompt", "", "system prompt")
	cmd.Flags().Int("typing-speed-ms", 0, "reveal interval in milliseconds per character")
	cmd.Flags().String("openai-api-key", "", "OpenAI API key")
	cmd.Flags().String("openai-base-url", "", "override the API base URL")

	for _, flag := range []string{
		"settings", "model", "temperature", "max-tokens",
		"system-prompt", "typing-speed-ms", "openai-api-key", "openai-base-url",
	} {
		if err := viper.BindPFlag(flag, cmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	controller, err := buildController()
	if err != nil {
		return err
	}

	router, err := events.NewEventRouter()
	if err != nil {
		return err
	}
	controller.Publisher().SubscribePublisher(events.DefaultTopic, router.Publisher)

	printer, err := newEventPrinter(os.Stdout)
	if err != nil {
		return err
	}
	router.AddHandler("cli-printer", events.DefaultTopic, printer.Handle)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer cancel()
		return router.Run(ctx)
	})

	<-router.Running()
	printHistory(os.Stdout, printer, controller)

	eg.Go(func() error {
		defer cancel()
		defer func() {
			_ = router.Close()
		}()
		return interactiveLoop(ctx, controller, printer)
	})

	err = eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printHistory(w io.Writer, printer *eventPrinter, controller *session.Controller) {
	for _, msg := range controller.Store().Messages() {
		printer.printMessage(w, msg)
	}
}

func interactiveLoop(ctx context.Context, controller *session.Controller, printer *eventPrinter) error {
	fmt.Println("Type a message, or /help for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()

		if strings.HasPrefix(strings.TrimSpace(line), "/") {
			quit, err := handleCommand(ctx, controller, printer, strings.TrimSpace(line), scanner)
			if err != nil {
				fmt.Printf("! %s\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := controller.SendText(ctx, line); err != nil {
			switch {
			case errors.Is(err, session.ErrEmptyInput):
				// nothing to send
			case errors.Is(err, session.ErrRequestInFlight):
				fmt.Println("! a request is already in flight")
			default:
				// surfaced through the error event stream already
				log.Debug().Err(err).Msg("send failed")
			}
			continue
		}

		printer.WaitForReveal(ctx)
	}
}

func handleCommand(
	ctx context.Context,
	controller *session.Controller,
	printer *eventPrinter,
	line string,
	scanner *bufio.Scanner,
) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Println(`commands:
  /regen           redo the last exchange
  /clear           delete the whole conversation
  /export <file>   write the conversation to a file
  /import <file>   load a conversation from a file
  /quit            leave`)
		return false, nil

	case "/regen":
		if err := controller.RegenerateLast(ctx); err != nil {
			return false, err
		}
		printer.WaitForReveal(ctx)
		return false, nil

	case "/clear":
		fmt.Print("delete the whole conversation? [y/N] ")
		if !scanner.Scan() {
			return true, scanner.Err()
		}
		if strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
			fmt.Println("kept.")
			return false, nil
		}
		return false, controller.Clear()

	case "/export":
		if len(fields) < 2 {
			return false, errors.New("usage: /export <file>")
		}
		data, err := controller.Export()
		if err != nil {
			return false, err
		}
		if err := os.WriteFile(fields[1], data, 0644); err != nil {
			return false, err
		}
		fmt.Printf("exported to %s\n", fields[1])
		return false, nil

	case "/import":
		if len(fields) < 2 {
			return false, errors.New("usage: /import <file>")
		}
		data, err := os.ReadFile(fields[1])
		if err != nil {
			return false, err
		}
		return false, controller.Import(data)

	default:
		return false, errors.Errorf("unknown command %s", fields[0])
	}
}

// eventPrinter renders the session event stream to the terminal: user turns
// as-is, assistant turns character by character as the reveal progresses,
// code replies re-rendered with glamour once fully revealed.
type eventPrinter struct {
	w        io.Writer
	renderer *glamour.TermRenderer

	// reveal bookkeeping for the currently revealing message
	printed      int
	language     string
	isCode       bool
	lastRevealed string
	revealDone   chan struct{}
}

func newEventPrinter(w io.Writer) (*eventPrinter, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, err
	}

	return &eventPrinter{
		w:          w,
		renderer:   renderer,
		revealDone: make(chan struct{}, 1),
	}, nil
}

func (p *eventPrinter) Handle(msg *message.Message) error {
	defer msg.Ack()

	e, err := events.NewEventFromJSON(msg.Payload)
	if err != nil {
		log.Warn().Err(err).Msg("could not parse session event")
		return nil
	}

	switch ev := e.(type) {
	case *events.EventMessageAppended:
		if ev.Message.Role == conversation.RoleUser {
			return nil
		}
		if ev.Message.RevealState == conversation.RevealRevealing {
			p.printed = 0
			p.isCode = ev.Message.Kind == classify.ContentKindCode
			p.language = ev.Message.Language
			fmt.Fprint(p.w, "assistant: ")
			return nil
		}
		// restored or imported messages arrive fully revealed
		p.printMessage(p.w, ev.Message)

	case *events.EventRevealDelta:
		fmt.Fprint(p.w, ev.Displayed[p.printed:])
		p.printed = len(ev.Displayed)
		p.lastRevealed = ev.Displayed

	case *events.EventRevealDone:
		fmt.Fprintln(p.w)
		if p.isCode {
			fmt.Fprint(p.w, p.renderFence(p.lastRevealed, p.language))
		}
		p.signalRevealDone()

	case *events.EventError:
		fmt.Fprintf(p.w, "\n! %s\n", ev.Message)
		p.signalRevealDone()

	case *events.EventSessionCleared:
		fmt.Fprintln(p.w, "-- conversation cleared --")

	case *events.EventResponseDiscarded:
		log.Debug().Str("reason", ev.Reason).Msg("discarded late completion")
		p.signalRevealDone()
	}

	return nil
}

// WaitForReveal blocks until the current assistant reply finished revealing
// (or errored out), so the prompt does not interleave with the typing effect.
func (p *eventPrinter) WaitForReveal(ctx context.Context) {
	select {
	case <-p.revealDone:
	case <-ctx.Done():
	}
}

func (p *eventPrinter) signalRevealDone() {
	select {
	case p.revealDone <- struct{}{}:
	default:
	}
}

func (p *eventPrinter) printMessage(w io.Writer, msg *conversation.Message) {
	switch msg.Role {
	case conversation.RoleUser:
		fmt.Fprintf(w, "you: %s\n", msg.Content)
	case conversation.RoleAssistant:
		if msg.Kind == classify.ContentKindCode {
			fmt.Fprint(w, "assistant:\n")
			fmt.Fprint(w, p.renderFence(msg.Content, msg.Language))
			return
		}
		fmt.Fprintf(w, "assistant: %s\n", msg.Content)
	}
}

func (p *eventPrinter) renderFence(content string, language string) string {
	out, err := p.renderer.Render(fmt.Sprintf("```%s\n%s\n```", language, content))
	if err != nil {
		log.Warn().Err(err).Msg("could not render code block")
		return content + "\n"
	}
	return out
}
