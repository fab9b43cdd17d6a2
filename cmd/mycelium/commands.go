package main

import (
	"errors"
	"fmt"
	"mycelium/internal/engine"
	"mycelium/pkg/domain"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current stage, environment and organism",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withController(cmd.Context(), func(c *engine.Controller) error {
				a.printStatus(c.Status())
				return nil
			})
		},
	}
}

func (a *app) printStatus(st engine.Status) {
	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "cycle:\t%s\n", st.CycleID)
	fmt.Fprintf(w, "stage:\t%s\n", st.CurrentStage)
	p := st.Parameters
	fmt.Fprintf(w, "environment:\ttemperature=%g humidity=%g nutrition=%g ph=%g\n", p.Temperature, p.Humidity, p.Nutrition, p.PH)
	if o := st.Organism; o != nil {
		fmt.Fprintf(w, "organism:\t%s [%s]\n", o.Name, o.Language)
		fmt.Fprintf(w, "description:\t%s\n", o.Description)
		if o.TranslatedDescription != nil {
			fmt.Fprintf(w, "translation:\t%s\n", *o.TranslatedDescription)
		}
		fmt.Fprintf(w, "image:\t%s\n", o.ImageURL)
	} else {
		fmt.Fprintf(w, "organism:\t-\n")
	}
	fmt.Fprintf(w, "history:\t%d entries\n", len(st.History))
	if st.Message != "" {
		fmt.Fprintf(w, "message:\t%s\n", st.Message)
	}
	_ = w.Flush()
}

func (a *app) advanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Attempt one stage transition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return a.withController(ctx, func(c *engine.Controller) error {
				outcome, err := c.Advance(ctx)
				if err != nil && engine.OutcomeOf(err) == 0 {
					return err
				}
				if err != nil {
					fmt.Fprintf(a.stdout, "%s: %v\n", outcome, err)
					return nil
				}
				fmt.Fprintf(a.stdout, "%s: now %s\n", outcome, c.Snapshot().CurrentStage)
				if c.Status().Discovering {
					fmt.Fprintln(a.stdout, "fruiting: searching for a matching organism...")
					if err := c.AwaitDiscovery(ctx); err != nil {
						return err
					}
					if org := c.Snapshot().Organism; org != nil {
						fmt.Fprintf(a.stdout, "discovered: %s\n", org.Name)
					} else {
						fmt.Fprintln(a.stdout, "no matching organism found")
					}
				}
				return nil
			})
		},
	}
}

func (a *app) setCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set an environmental parameter (clamped into its global range)",
		Long:  "Fields: " + strings.Join(fieldNames(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := domain.ParseField(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("%w: %q", domain.ErrInvalidValue, args[1])
			}
			ctx := cmd.Context()
			return a.withController(ctx, func(c *engine.Controller) error {
				stored, err := c.SetParameter(ctx, field, value)
				if err != nil {
					return err
				}
				suffix := ""
				if stored != value {
					suffix = fmt.Sprintf(" (clamped to %s)", domain.GlobalRanges[field])
				}
				fmt.Fprintf(a.stdout, "%s = %g%s\n", field, stored, suffix)
				return nil
			})
		},
	}
}

func fieldNames() []string {
	var out []string
	for _, f := range domain.Fields() {
		out = append(out, fmt.Sprintf("%s %s", f, domain.GlobalRanges[f]))
	}
	return out
}

func (a *app) resetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start a new cycle from spore with default parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return a.withController(ctx, func(c *engine.Controller) error {
				if err := c.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "new cycle %s at %s\n", c.Snapshot().CycleID, domain.StageSpore)
				return nil
			})
		},
	}
}

func (a *app) historyCommand() *cobra.Command {
	history := &cobra.Command{Use: "history", Short: "Inspect or prune the transition history"}
	history.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recorded transitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withController(cmd.Context(), func(c *engine.Controller) error {
				w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "KEY\tSTAGE\tOCCURRED AT\tTEMP\tHUMIDITY\tNUTRITION\tPH")
				for _, e := range c.Snapshot().History {
					p := e.Parameters
					fmt.Fprintf(w, "%d\t%s\t%s\t%g\t%g\t%g\t%g\n", e.Key, e.Stage, e.OccurredAt.Format(time.RFC3339Nano),
						p.Temperature, p.Humidity, p.Nutrition, p.PH)
				}
				return w.Flush()
			})
		},
	})

	var at string
	del := &cobra.Command{
		Use:   "delete [key]",
		Short: "Delete an entry by key, or every entry recorded at --at",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			switch {
			case at != "" && len(args) == 0:
				ts, err := time.Parse(time.RFC3339Nano, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				return a.withController(ctx, func(c *engine.Controller) error {
					n, err := c.DeleteHistoryAt(ctx, ts)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.stdout, "deleted %d entries\n", n)
					return nil
				})
			case at == "" && len(args) == 1:
				key, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid key %q", args[0])
				}
				return a.withController(ctx, func(c *engine.Controller) error {
					ok, err := c.DeleteHistory(ctx, key)
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("no history entry with key %d", key)
					}
					fmt.Fprintf(a.stdout, "deleted entry %d\n", key)
					return nil
				})
			default:
				return errors.New("give exactly one of <key> or --at")
			}
		},
	}
	del.Flags().StringVar(&at, "at", "", "RFC3339Nano timestamp; deletes every entry recorded at that instant")
	history.AddCommand(del)
	return history
}

func (a *app) discoverCommand() *cobra.Command {
	var attempts int
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run one encyclopedia lookup without touching the cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.discoveryService(nil)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("attempts") {
				attempts = a.cfg.Engine.DiscoveryAttempts
			}
			org, err := svc.Discover(cmd.Context(), attempts)
			if err != nil {
				return err
			}
			if org == nil {
				fmt.Fprintf(a.stdout, "no organism found after %d attempts\n", attempts)
				return nil
			}
			fmt.Fprintf(a.stdout, "%s [%s]\n%s\n%s\n", org.Name, org.Language, org.Description, org.ImageURL)
			if org.TranslatedDescription != nil {
				fmt.Fprintln(a.stdout, *org.TranslatedDescription)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&attempts, "attempts", 0, "attempt budget (default engine.discovery_attempts)")
	return cmd
}
