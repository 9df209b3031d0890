package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaborage/redisbridge/app"
	"github.com/gaborage/redisbridge/lock"
)

// LockOptions holds options for the lock command
type LockOptions struct {
	Hold time.Duration
	Wait time.Duration
	Try  bool
}

// NewLockCommand creates the lock command
func NewLockCommand(opts *GlobalOptions) *cobra.Command {
	lockOpts := &LockOptions{}

	cmd := &cobra.Command{
		Use:   "lock NAME",
		Short: "Acquire a distributed lock, hold it, then release it",
		Long: `Acquires NAME with the configured lockWatchdogTimeout as lease. The lease is
renewed in the background while the lock is held.`,
		Example: `  # Hold the lock for 30 seconds, waiting up to a minute for it
  redisbridge lock nightly-report --hold 30s --wait 1m

  # Fail immediately when someone else holds it
  redisbridge lock nightly-report --try`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return runLock(cmd, a.Locker(), args[0], lockOpts)
			})
		},
	}

	cmd.Flags().DurationVar(&lockOpts.Hold, "hold", 0, "How long to hold the lock before releasing it")
	cmd.Flags().DurationVar(&lockOpts.Wait, "wait", 0, "Give up acquiring after this long, 0 waits until interrupted")
	cmd.Flags().BoolVar(&lockOpts.Try, "try", false, "Make a single attempt")

	return cmd
}

func runLock(cmd *cobra.Command, locker *lock.Locker, name string, opts *LockOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	acquireCtx := ctx
	if opts.Wait > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, opts.Wait)
		defer cancel()
	}

	var (
		lk  *lock.Lock
		err error
	)
	if opts.Try {
		lk, err = locker.TryAcquire(acquireCtx, name)
	} else {
		lk, err = locker.Acquire(acquireCtx, name)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "acquired %s (lease %s)\n", lk.Name(), locker.Lease())

	if opts.Hold > 0 {
		select {
		case <-time.After(opts.Hold):
		case <-ctx.Done():
		}
	}

	if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	fmt.Fprintf(out, "released %s\n", lk.Name())
	return nil
}
