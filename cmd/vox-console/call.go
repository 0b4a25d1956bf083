package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	vox "github.com/vango-go/vox-console/sdk"

	"github.com/vango-go/vox-console/internal/audio"
	"github.com/vango-go/vox-console/pkg/core/call"
	"github.com/vango-go/vox-console/pkg/core/transcript"
	"github.com/vango-go/vox-console/pkg/realtime"
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Start a live voice call with the agent",
	Long: `Starts a voice call using the saved prompt and instructions: your
microphone is streamed to the agent and the agent's audio plays back
locally. Chat messages from the agent appear as they arrive.

Type /end to hang up. After the call the transcript is fetched (it can take
up to 30 seconds to appear) and you can rate the conversation with /good or
/bad, or /skip to rate nothing.`,
	Args: cobra.NoArgs,
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	saved, err := store.Load()
	if err != nil {
		return err
	}

	controller := call.NewController(call.Config{
		RealtimeURL:    cfg.RealtimeURL,
		ConnectTimeout: cfg.ConnectTimeout,
		Issuer:         client.Tokens,
		DialRoom: func(ctx context.Context, wsURL string, opts realtime.DialOptions) (call.RoomSession, error) {
			return realtime.Dial(ctx, wsURL, opts)
		},
		OpenCapture: func(sampleRate, channels int) (call.AudioSource, error) {
			return audio.OpenCapture(sampleRate, channels)
		},
		OpenPlayer: func(sampleRate, channels int) (call.AudioSink, error) {
			return audio.NewPlayer(sampleRate, channels)
		},
		Logger: slog.Default(),
	})

	fmt.Println(headerStyle.Render("vox-console"))
	fmt.Println(statusStyle.Render("Connecting..."))

	events, err := controller.Start(cmd.Context(), call.Settings{
		Prompt:       saved.Prompt,
		Instructions: saved.Instructions,
	})
	if err != nil {
		return err
	}

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		for event := range events {
			renderCallEvent(event)
		}
	}()

	lines := readLines(os.Stdin)

	fmt.Println(mutedStyle.Render("Type /end to hang up."))
input:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				break input
			}
			if strings.TrimSpace(line) == "/end" {
				break input
			}
			fmt.Println(mutedStyle.Render("Unknown input; type /end to hang up."))
		case <-sessionDone:
			break input
		}
	}

	documentID := controller.Stop()
	<-sessionDone
	fmt.Println(statusStyle.Render("Call ended."))

	if documentID == "" {
		fmt.Println(warnStyle.Render("No transcript document for this call; skipping transcript and feedback."))
		return nil
	}

	if ready := pollTranscript(cmd.Context(), documentID); ready {
		promptFeedback(cmd.Context(), documentID, lines)
	}
	return nil
}

func renderCallEvent(event call.Event) {
	switch e := event.(type) {
	case call.ConnectedEvent:
		fmt.Println(statusStyle.Render("Connected to " + e.Room + " as " + e.Participant))
		if e.DocumentID != "" {
			fmt.Println(idStyle.Render("transcript document: " + e.DocumentID))
		}
	case call.AgentSpeakingStartedEvent:
		fmt.Println(agentRoleStyle.Render("● agent speaking"))
	case call.AgentSpeakingStoppedEvent:
		fmt.Println(mutedStyle.Render("○ agent idle"))
	case call.ChatMessageEvent:
		fmt.Println(senderStyle.Render(e.Sender+":") + " " + e.Text)
	case call.DisconnectedEvent:
		fmt.Println(warnStyle.Render("Disconnected."))
	}
}

// pollTranscript waits for the transcript to materialize and renders it.
// Returns true when the transcript was shown, false on cancellation.
func pollTranscript(ctx context.Context, documentID string, opts ...transcript.Option) bool {
	fmt.Println(statusStyle.Render("Fetching transcript..."))

	poller := transcript.NewPoller(client.Conversations, append([]transcript.Option{transcript.WithLogger(slog.Default())}, opts...)...)
	poller.Start(ctx, documentID)
	defer poller.Reset()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			fmt.Println(warnStyle.Render("Transcript fetch canceled."))
			return false
		case snap := <-poller.Updates():
			switch snap.State {
			case transcript.StatePolling:
				if snap.Attempts > 0 {
					fmt.Printf("\r%s", mutedStyle.Render(fmt.Sprintf("waiting for transcript... attempt %d/%d", snap.Attempts, snap.MaxAttempts)))
				}
			case transcript.StateReady:
				fmt.Println()
				renderTranscript(snap.Messages)
				return true
			case transcript.StateFailed:
				fmt.Println()
				fmt.Println(warnStyle.Render("Transcript is not available yet. Rate the call anyway, or fetch it later."))
				return true
			}
		}
	}
}

func renderTranscript(messages []vox.TranscriptMessage) {
	fmt.Println(headerStyle.Render("Transcript"))
	for _, message := range messages {
		role := message.Role
		style := userRoleStyle
		if role != "user" {
			style = agentRoleStyle
		}
		suffix := ""
		if message.Interrupted {
			suffix = " " + warnStyle.Render("(interrupted)")
		}
		fmt.Println(style.Render(role+":") + " " + message.Content.Text + suffix)
	}
}

func promptFeedback(ctx context.Context, documentID string, lines <-chan string) {
	var state call.FeedbackState
	fmt.Println(mutedStyle.Render("Rate this call: /good, /bad, or /skip"))
	for line := range lines {
		switch strings.TrimSpace(line) {
		case "/good":
			if submitFeedback(ctx, &state, documentID, vox.QualityGood) {
				return
			}
		case "/bad":
			if submitFeedback(ctx, &state, documentID, vox.QualityBad) {
				return
			}
		case "/skip":
			return
		default:
			fmt.Println(mutedStyle.Render("Use /good, /bad, or /skip."))
		}
	}
}

func submitFeedback(ctx context.Context, state *call.FeedbackState, documentID string, quality vox.Quality) bool {
	if !state.Begin() {
		return state.Submitted()
	}
	err := client.Conversations.SubmitFeedback(ctx, documentID, quality)
	state.Finish(err)
	if err != nil {
		fmt.Println(errorStyle.Render("Feedback failed: " + err.Error()))
		fmt.Println(mutedStyle.Render("Try again, or /skip."))
		return false
	}
	fmt.Println(statusStyle.Render("Thanks for the feedback."))
	return true
}

func readLines(f *os.File) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
