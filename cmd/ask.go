package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smartmap-fr/smartmap/internal/chat"
	"github.com/smartmap-fr/smartmap/internal/locale"
)

var (
	askLang    string
	askWelcome bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the price assistant a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "ask")
		if err != nil {
			return err
		}
		defer env.Close()

		lang := locale.Parse(cfg.Chat.Language)
		if askLang != "" {
			lang = locale.Parse(askLang)
		}

		session := chat.NewSession(env.Chat, lang)
		if askWelcome {
			session.Open()
		}
		sendErr := session.Send(cmd.Context(), strings.Join(args, " "))
		printTranscript(cmd.OutOrStdout(), session.Transcript().Messages())
		return sendErr
	},
}

func printTranscript(w io.Writer, msgs []chat.Message) {
	for _, m := range msgs {
		prefix := "< "
		if m.Role == chat.RoleUser {
			prefix = "> "
		}
		switch m.Kind {
		case chat.KindSuggestions:
			for _, s := range m.Suggestions {
				fmt.Fprintf(w, "%s  - %s\n", prefix, s)
			}
		default:
			fmt.Fprintf(w, "%s%s\n", prefix, strings.TrimRight(m.Text, "\n"))
		}
	}
}

func init() {
	askCmd.Flags().StringVar(&askLang, "lang", "", "answer language: fr or en (default from config)")
	askCmd.Flags().BoolVar(&askWelcome, "welcome", false, "print the welcome message and example questions first")
	rootCmd.AddCommand(askCmd)
}
