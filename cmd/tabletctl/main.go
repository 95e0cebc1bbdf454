// Command tabletctl is the operator CLI for the snapshot manager: it
// drives MakeSnapshot, ReleaseSnapshot and ConvertRowsetIds, the same
// role the teacher's cmd/parquet-tool plays as a thin cobra shell over
// library calls. release-snapshot and convert-ids act on real on-disk
// directories; make-snapshot runs against an empty in-memory tablet
// source, so every tablet it is asked for is reported as not found.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	tabletsnap "github.com/polarsignals/tabletsnap"
	"github.com/polarsignals/tabletsnap/internal/rowset"
	"github.com/polarsignals/tabletsnap/pkg/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "tabletctl",
		Short: "Operate on tablet snapshots",
	}
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	root.AddCommand(newMakeSnapshotCmd(&verbose), newReleaseSnapshotCmd(&verbose), newConvertIdsCmd(&verbose))
	return root
}

func newLogger(verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	if !verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	return logger
}

func newMakeSnapshotCmd(verbose *bool) *cobra.Command {
	var (
		tabletId       int64
		schemaHash     uint32
		version        int64
		hasVersion     bool
		timeoutSeconds int64
		format         string
		dataDir        string
	)

	cmd := &cobra.Command{
		Use:   "make-snapshot",
		Short: "Produce a point-in-time snapshot of a tablet",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := tabletsnap.New(
				tabletsnap.WithLogger(newLogger(*verbose)),
				tabletsnap.WithRegisterer(prometheus.NewRegistry()),
			)
			source := tabletsnap.NewInMemoryTabletSource()
			_ = source // a real deployment wires a live tablet manager here

			req := &types.SnapshotRequest{
				TabletId:       tabletId,
				SchemaHash:     schemaHash,
				TimeoutSeconds: timeoutSeconds,
			}
			if hasVersion {
				req.Version = &version
			}
			switch format {
			case "v1":
				req.PreferredSnapshotVersion = types.SnapshotV1
			case "v2":
				req.PreferredSnapshotVersion = types.SnapshotV2
			default:
				return fmt.Errorf("unknown --format %q, want v1 or v2", format)
			}

			res, err := mgr.MakeSnapshot(cmd.Context(), source, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Path)
			return nil
		},
	}
	cmd.Flags().Int64Var(&tabletId, "tablet-id", 0, "tablet id")
	cmd.Flags().Uint32Var(&schemaHash, "schema-hash", 0, "schema hash")
	cmd.Flags().Int64Var(&timeoutSeconds, "timeout", 300, "reaper timeout in seconds")
	cmd.Flags().StringVar(&format, "format", "v2", "snapshot wire format: v1 or v2")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "unused placeholder for a real tablet source's data root")
	cmd.Flags().Var(versionFlag{&version, &hasVersion}, "version", "explicit target version")
	_ = cmd.MarkFlagRequired("tablet-id")
	return cmd
}

func newReleaseSnapshotCmd(verbose *bool) *cobra.Command {
	var roots []string

	cmd := &cobra.Command{
		Use:   "release-snapshot [path]",
		Short: "Remove a previously materialised snapshot directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := tabletsnap.New(tabletsnap.WithLogger(newLogger(*verbose)))
			registry := tabletsnap.StaticDataDirRegistry(roots)
			return mgr.ReleaseSnapshot(cmd.Context(), registry, args[0])
		},
	}
	cmd.Flags().StringArrayVar(&roots, "data-root", nil, "known data root (repeatable)")
	_ = cmd.MarkFlagRequired("data-root")
	return cmd
}

func newConvertIdsCmd(verbose *bool) *cobra.Command {
	var (
		cloneDir      string
		newTabletId   int64
		newSchemaHash uint32
	)

	cmd := &cobra.Command{
		Use:   "convert-ids",
		Short: "Rebind a received snapshot's rowset ids at restore time",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := tabletsnap.New(tabletsnap.WithLogger(newLogger(*verbose)))
			return mgr.ConvertRowsetIds(context.Background(), rowset.DefaultFactory{}, cloneDir, newTabletId, newSchemaHash)
		},
	}
	cmd.Flags().StringVar(&cloneDir, "clone-dir", "", "directory holding the received snapshot")
	cmd.Flags().Int64Var(&newTabletId, "new-tablet-id", 0, "target tablet id")
	cmd.Flags().Uint32Var(&newSchemaHash, "new-schema-hash", 0, "target schema hash")
	_ = cmd.MarkFlagRequired("clone-dir")
	_ = cmd.MarkFlagRequired("new-tablet-id")
	return cmd
}

// versionFlag adapts an optional int64 flag to pflag.Value so --version
// can distinguish "not passed" from "passed as zero".
type versionFlag struct {
	v   *int64
	set *bool
}

func (f versionFlag) String() string {
	if f.v == nil || !*f.set {
		return ""
	}
	return fmt.Sprint(*f.v)
}

func (f versionFlag) Set(s string) error {
	var v int64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return err
	}
	*f.v = v
	*f.set = true
	return nil
}

func (f versionFlag) Type() string { return "int64" }
