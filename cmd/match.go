package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/logger"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/store/snapshot"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/suggest"
)

const (
	PromptYes         = "Yes"
	PromptNo          = "No"
	PromptShowReasons = "Show candidates with reasons"
	PromptDumpToFile  = "Dump report to file"
)

var errSkip = errors.New("persisting skipped")

var prompt = promptui.Select{
	Label: "Persist suggestions?",
	Items: []string{PromptYes, PromptNo, PromptShowReasons, PromptDumpToFile},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score contacts for a conversation and persist the suggestions",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("conversation", "c", "", "conversation id to match (required for postgres, optional for snapshots)")
	matchCmd.Flags().StringP("snapshot", "s", "", "read the conversation and contacts from a JSON snapshot instead of postgres")
	matchCmd.Flags().StringP("out", "o", "", "results file for snapshot runs")
	matchCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before persisting")
	matchCmd.Flags().Bool("dry-run", false, "print the suggestions without persisting them")
}

type matchTarget struct {
	source        suggest.Source
	store         suggest.Store
	conversations []string
	flush         func() error
	close         func()
}

func match(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the intro-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")

	target, err := openTarget(ctx, cmd, config, dryRun)
	if err != nil {
		logger.Fatal("opening matching inputs", zap.Error(err))
	}
	defer target.close()

	service, err := newService(ctx, config, target.source, target.store, logger)
	if err != nil {
		logger.Fatal("creating the matching service", zap.Error(err))
	}

	reports := make([]*suggest.Report, 0, len(target.conversations))
	for _, id := range target.conversations {
		report, err := service.Prepare(ctx, id)
		if err != nil {
			logger.Fatal("matching failed", zap.String("conversation_id", id), zap.Error(err))
		}
		reports = append(reports, report)

		if dryRun || len(report.Records) == 0 {
			continue
		}

		if !autoApprove {
			if err := confirm(cmd.ErrOrStderr(), logger, report); err != nil {
				if errors.Is(err, errSkip) {
					continue
				}
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		if err := service.Persist(ctx, report); err != nil {
			logger.Fatal("persisting suggestions", zap.String("conversation_id", id), zap.Error(err))
		}
		logger.Info("suggestions persisted",
			zap.String("conversation_id", id),
			zap.Int("persisted", report.Persisted),
			zap.Int("failed", report.Failed),
		)
	}

	if !dryRun && target.flush != nil {
		if err := target.flush(); err != nil {
			logger.Fatal("writing results", zap.Error(err))
		}
	}

	if err := printJSON(cmd.OutOrStdout(), reports); err != nil {
		logger.Fatal("printing reports", zap.Error(err))
	}
}

// openTarget picks the snapshot files or postgres depending on flags.
func openTarget(ctx context.Context, cmd *cobra.Command, config *Config, dryRun bool) (*matchTarget, error) {
	conversation, _ := cmd.Flags().GetString("conversation")
	snapshotPath, _ := cmd.Flags().GetString("snapshot")
	outPath, _ := cmd.Flags().GetString("out")

	if snapshotPath != "" {
		source, err := snapshot.Open(snapshotPath)
		if err != nil {
			return nil, err
		}

		conversations := source.ConversationIDs()
		if conversation != "" {
			conversations = []string{conversation}
		}

		target := &matchTarget{source: source, conversations: conversations, close: func() {}}
		if dryRun {
			return target, nil
		}
		if outPath == "" {
			return nil, errors.New("--out is required for snapshot runs unless --dry-run is set")
		}

		results, err := snapshot.OpenResults(outPath)
		if err != nil {
			return nil, err
		}
		target.store = results
		target.flush = results.Flush
		return target, nil
	}

	if _, err := uuid.Parse(conversation); err != nil {
		return nil, fmt.Errorf("--conversation must be a uuid: %w", err)
	}

	db, err := openDatabase(ctx, config.Database)
	if err != nil {
		return nil, err
	}
	return &matchTarget{source: db, store: db, conversations: []string{conversation}, close: db.Close}, nil
}

func confirm(out io.Writer, logger *zap.Logger, report *suggest.Report) error {
	for {
		logger.Info("suggestions ready",
			zap.String("conversation_id", report.ConversationID),
			zap.Int("count", len(report.Records)),
			zap.Int("explained", report.Explained),
		)

		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptYes:
			return nil
		case PromptNo:
			logger.Info("skipping conversation", zap.String("reason", "got no from prompt"))
			return errSkip
		case PromptShowReasons:
			for _, r := range report.Records {
				fmt.Fprintf(out, "%s  %d stars  %s\n", r.ContactID, r.Score, r.Justification)
			}
		case PromptDumpToFile:
			filename, err := dumpToTmpFile(report)
			if err != nil {
				return fmt.Errorf("dump report: %w", err)
			}
			logger.Info("dumping report to file", zap.String("filename", filename))
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}
}

func dumpToTmpFile(report *suggest.Report) (string, error) {
	f, err := os.CreateTemp("", app+"-report-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := printJSON(f, report); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
