package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/soulweave/rose"
	"github.com/soulweave/rose/config"
	"github.com/soulweave/rose/workflow"
	"github.com/spf13/cobra"
)

func newCmd() *cobra.Command {
	var (
		sessionID string
		audioDir  string
		reset     bool
	)

	cmd := &cobra.Command{
		Use:   "rose <persona-file>",
		Short: "Chat with a voice persona from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.Errorf("persona-file is required")
			}

			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return errors.Wrapf(err, "failed to load .env")
			}

			personaConfig, err := config.LoadPersonaFromFile(args[0])
			if err != nil {
				return err
			}

			runtime, err := rose.NewRuntime(
				cmd.Context(),
				rose.WithPersona(rose.PersonaFromConfig(personaConfig)),
			)
			if err != nil {
				return errors.Wrapf(err, "failed to create runtime")
			}
			defer runtime.Close()

			if reset {
				if err := runtime.ResetSession(cmd.Context(), sessionID); err != nil {
					return errors.Wrapf(err, "failed to reset session %s", sessionID)
				}
				fmt.Printf("session %s reset\n", sessionID)
			}

			fmt.Printf("Chatting with %s. Type a message, or /quit to leave.\n", runtime.Persona().Name)

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "/quit" || line == "/exit" {
					return nil
				}

				resp, err := runtime.Converse(cmd.Context(), rose.ConverseRequest{
					SessionID: sessionID,
					Text:      line,
				})
				if err != nil {
					return err
				}

				fmt.Printf("%s: %s\n", runtime.Persona().Name, resp.Text)
				if resp.Decision == workflow.DecisionAudio && len(resp.Audio) > 0 && audioDir != "" {
					if err := writeAudio(audioDir, sessionID, resp.Audio); err != nil {
						fmt.Fprintf(os.Stderr, "failed to write audio: %v\n", err)
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "default", "session id to converse under")
	cmd.Flags().StringVar(&audioDir, "audio-dir", "", "directory to write synthesized replies into as mp3 files")
	cmd.Flags().BoolVar(&reset, "reset", false, "discard the session's saved conversation before starting")

	return cmd
}

var audioSeq int

func writeAudio(dir, sessionID string, audio []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	audioSeq++
	name := filepath.Join(dir, fmt.Sprintf("%s-%03d.mp3", sessionID, audioSeq))
	if err := os.WriteFile(name, audio, 0o644); err != nil {
		return errors.WithStack(err)
	}
	fmt.Printf("(audio reply saved to %s)\n", name)
	return nil
}
