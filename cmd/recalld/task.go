package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var taskSessionID string

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskCancelCmd)
	taskCompleteCmd.Flags().StringVar(&taskSessionID, "session", "", "session completing the task")
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tracked tasks",
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.captures.CompleteTask(cmd.Context(), args[0], taskSessionID); err != nil {
			return err
		}
		fmt.Printf("task %s completed\n", args[0])
		return nil
	},
}

var taskCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.captures.CancelTask(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("task %s cancelled\n", args[0])
		return nil
	},
}
