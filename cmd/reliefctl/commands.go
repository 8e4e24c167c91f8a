package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-relief-hub/internal/app"
	"go-relief-hub/internal/model"

	"github.com/spf13/cobra"
)

func newMigrateCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database schema and seed share subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withApp(cmd, func(a *app.App) error {
				subs, err := a.Subscriptions.List(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Database migrated, %d share subscriptions\n", len(subs))
				return nil
			})
		},
	}
}

func newSubscriptionsCommand(cc *commandContext) *cobra.Command {
	subsCmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subs"},
		Short:   "Inspect and repoint share subscriptions",
	}

	subsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the group each audience is routed to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withApp(cmd, func(a *app.App) error {
				subs, err := a.Subscriptions.List(cmd.Context())
				if err != nil {
					return err
				}
				table := make([][]string, 0, len(subs))
				for _, s := range subs {
					group, name := "-", "-"
					if s.GroupID != nil {
						group = strconv.FormatUint(uint64(*s.GroupID), 10)
					}
					if s.Group != nil {
						name = s.Group.Name
					}
					table = append(table, []string{string(s.ShareWith), group, name})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Share With", "Group", "Name"}, table,
					[]columnAlignment{alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	})

	subsCmd.AddCommand(&cobra.Command{
		Use:   "set <share_with> <group_id|none>",
		Short: "Route an audience to a group, or unsubscribe it with none",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shareWith := model.ShareWith(strings.ToUpper(strings.TrimSpace(args[0])))
			var groupID *uint
			if !strings.EqualFold(args[1], "none") {
				id, err := strconv.ParseUint(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid group id %q", args[1])
				}
				gid := uint(id)
				groupID = &gid
			}
			return cc.withApp(cmd, func(a *app.App) error {
				sub, err := a.Subscriptions.Set(cmd.Context(), shareWith, groupID)
				if err != nil {
					return err
				}
				if sub.GroupID == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s unsubscribed\n", sub.ShareWith)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s -> group %d\n", sub.ShareWith, *sub.GroupID)
				}
				return nil
			})
		},
	})
	return subsCmd
}

func newExportsCommand(cc *commandContext) *cobra.Command {
	exportsCmd := &cobra.Command{
		Use:   "exports",
		Short: "Inspect export jobs",
	}

	var status string
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List export jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := model.ExportStatus(strings.ToLower(strings.TrimSpace(status)))
			switch st {
			case "", model.ExportStatusPending, model.ExportStatusReady, model.ExportStatusFailed:
			default:
				return fmt.Errorf("unknown status %q", status)
			}
			return cc.withApp(cmd, func(a *app.App) error {
				jobs, err := a.ExportJobs.ListByStatus(cmd.Context(), st, limit)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No export jobs")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, j := range jobs {
					detail := ""
					switch {
					case j.URL != nil:
						detail = *j.URL
					case j.Error != nil:
						detail = *j.Error
					}
					rows = append(rows, []string{
						j.ID,
						strconv.FormatUint(uint64(j.SubjectID), 10),
						j.Kind,
						string(j.Status),
						j.CreatedAt.Format("2006-01-02 15:04:05"),
						detail,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Subject", "Kind", "Status", "Created", "Detail"}, rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft}))
				return nil
			})
		},
	}
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, ready, failed)")
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of jobs to show, 0 for all")
	exportsCmd.AddCommand(listCmd)

	var olderThan time.Duration
	reapCmd := &cobra.Command{
		Use:   "reap",
		Short: "Fail pending export jobs whose render was lost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return fmt.Errorf("invalid --older-than %s", olderThan)
			}
			return cc.withApp(cmd, func(a *app.App) error {
				n, err := a.ReapStaleExports(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Failed %d stale export jobs\n", n)
				return nil
			})
		},
	}
	reapCmd.Flags().DurationVar(&olderThan, "older-than", 0, "Minimum age of a pending job, defaults to worker.task_timeout")
	exportsCmd.AddCommand(reapCmd)
	return exportsCmd
}

func newGroupsCommand(cc *commandContext) *cobra.Command {
	groupsCmd := &cobra.Command{
		Use:   "groups",
		Short: "Inspect notification groups",
	}
	groupsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withApp(cmd, func(a *app.App) error {
				// 命令行以管理员身份查看全部群组
				groups, err := a.Groups.ListGroups(&model.User{IsStaff: true})
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(groups))
				for _, g := range groups {
					rows = append(rows, []string{
						strconv.FormatUint(uint64(g.ID), 10),
						g.Name,
						g.Owner.Username,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Owner"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft}))
				return nil
			})
		},
	})
	return groupsCmd
}
