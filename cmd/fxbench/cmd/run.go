package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fxdaemon/fxBench-sub005/bars"
	"github.com/fxdaemon/fxBench-sub005/config"
	"github.com/fxdaemon/fxBench-sub005/desk"
	"github.com/fxdaemon/fxBench-sub005/feed"
	"github.com/fxdaemon/fxBench-sub005/journal"
	"github.com/fxdaemon/fxBench-sub005/liaison"
	"github.com/fxdaemon/fxBench-sub005/logger"
	"github.com/fxdaemon/fxBench-sub005/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live desk against a trading server",
	Long: `Connect to the configured server, mirror the account locally and keep
every derived view current until interrupted.

Example:
  fxbench run -f fxbench.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML) (required)")
	runCmd.MarkFlagRequired("config")
}

// logSender accepts request callbacks for commands the CLI fires on its own
// behalf, such as bar refills.
type logSender struct {
	log *zap.Logger
}

func (s *logSender) RequestCompleted(req *liaison.Request) {
	s.log.Debug("request completed", zap.String("id", req.ID()))
}

func (s *logSender) RequestFailed(req *liaison.Request, err error) {
	s.log.Warn("request failed", zap.String("id", req.ID()), zap.Error(err))
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	var j *journal.SQLite
	opts := []desk.Option{desk.WithBarTail(cfg.Desk.BarTail)}
	if cfg.Journal.Path != "" {
		j, err = journal.NewSQLite(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer j.Close()
		opts = append(opts, desk.WithJournal(j))
	}

	d := desk.New(log, cfg.Account.Currency, cfg.Account.BaseUnitSize, cfg.Desk.ClockIncrement, opts...)
	defer d.Shutdown()

	if j != nil {
		// One equity snapshot per server-clock tick.
		d.Clock.OnTime(func(now time.Time) {
			if a, ok := d.Accounts.Primary(); ok {
				err := j.RecordEquity(journal.EquitySnapshot{
					Time:         now,
					AccountID:    a.AccountID,
					Balance:      a.Balance,
					Equity:       a.Equity,
					GrossPL:      a.GrossPL,
					UsedMargin:   a.UsedMargin,
					UsableMargin: a.UsableMargin,
				})
				if err != nil {
					log.Debug("equity snapshot failed", zap.Error(err))
				}
			}
		})
	}

	sess := session.New(cfg.Account.Currency, cfg.Account.BaseUnitSize)
	client := feed.NewClient(log, cfg.Server.URL, cfg.Server.User, d, sess, cfg.Server.PingInterval)
	commands := feed.NewCommands(client, sess)

	li := liaison.New(log)
	li.SetTransport(client)
	client.SetChannelStatus(li)
	d.AttachLiaison(li)

	sender := &logSender{log: log}
	d.SetRefillFunc(func(stale []bars.Key) {
		for _, k := range stale {
			req := commands.RequestBars(sender, k.Symbol, int(k.Interval/time.Second), cfg.Desk.BarTail)
			if err := li.Post(req); err != nil {
				log.Debug("refill skipped", zap.String("symbol", k.Symbol), zap.Error(err))
				return
			}
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A fatal send error tears the queue down; try to come back up until the
	// user gives up.
	critical := make(chan error, 1)
	li.OnCritical(func(err error) {
		select {
		case critical <- err:
		default:
		}
	})

	if err := li.Login(ctx); err != nil {
		return err
	}
	fmt.Printf("connected to %s as %s\n", cfg.Server.URL, cfg.Server.User)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return li.Logout(shutdownCtx)
		case err := <-critical:
			log.Warn("connection lost", zap.Error(err))
			for {
				time.Sleep(cfg.Server.ReconnectBackoff)
				if ctx.Err() != nil {
					return nil
				}
				if err := li.Reconnect(ctx); err == nil {
					log.Info("reconnected")
					break
				}
			}
		}
	}
}
