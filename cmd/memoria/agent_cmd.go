package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/memoria/internal/types"
)

var agentCmd = &cobra.Command{
	Use:     "agent",
	GroupID: "agents",
	Short:   "Register agents and exchange messages between them",
}

var agentRegisterCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Register or touch an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		a := &types.Agent{ID: id, Name: args[0]}
		if err := memSvc.RegisterAgent(cmd.Context(), a); err != nil {
			fatalErr(err)
		}
		printResult(a, func() { fmt.Println(a.ID) })
		return nil
	},
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		agents, err := memSvc.ListAgents(cmd.Context())
		if err != nil {
			fatalErr(err)
		}
		printResult(agents, func() {
			for _, a := range agents {
				fmt.Printf("%s  %s\n", a.ID, a.Name)
			}
		})
		return nil
	},
}

var messageSendCmd = &cobra.Command{
	Use:   "send <to-agent-id> <content>",
	Short: "Send a message to an agent's inbox",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		m, err := memSvc.SendMessage(cmd.Context(), from, args[0], args[1])
		if err != nil {
			fatalErr(err)
		}
		printResult(m, func() { fmt.Println(m.ID) })
		return nil
	},
}

var inboxCmd = &cobra.Command{
	Use:   "inbox <agent-id>",
	Short: "List messages addressed to an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unreadOnly, _ := cmd.Flags().GetBool("unread-only")
		limit, _ := cmd.Flags().GetInt("limit")
		msgs, err := memSvc.ListMessages(cmd.Context(), args[0], unreadOnly, limit)
		if err != nil {
			fatalErr(err)
		}
		printResult(msgs, func() {
			for _, m := range msgs {
				fmt.Printf("%s  from %s: %s\n", m.ID, m.FromAgent, m.Content)
			}
		})
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:   "read <message-id...>",
	Short: "Mark messages as read",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := memSvc.MarkMessagesRead(cmd.Context(), args); err != nil {
			fatalErr(err)
		}
		printResult(map[string]int{"marked": len(args)}, func() { fmt.Printf("marked %d message(s) read\n", len(args)) })
		return nil
	},
}

func init() {
	agentRegisterCmd.Flags().String("id", "", "explicit agent id (random uuid if omitted)")
	messageSendCmd.Flags().String("from", "", "sending agent id")
	inboxCmd.Flags().Bool("unread-only", false, "only return unread messages")
	inboxCmd.Flags().Int("limit", 50, "maximum messages to return")

	for _, c := range []*cobra.Command{agentRegisterCmd, agentListCmd, messageSendCmd, inboxCmd, readCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	}

	agentCmd.AddCommand(agentRegisterCmd, agentListCmd)
	rootCmd.AddCommand(agentCmd, messageSendCmd, inboxCmd, readCmd)
}
