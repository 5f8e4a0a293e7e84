package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"topolab/internal/codec"
	"topolab/internal/domain"
	"topolab/internal/repository"
	"topolab/internal/repository/sqlite"
	"topolab/internal/service"
	"topolab/internal/topology"
)

type buildOptions struct {
	collector     collectorFlags
	output        string
	visualization string
	ansible       string
	format        string
	save          bool
}

func newBuildCmd(a *app) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Pull inventories once and write the topology and visualization documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.collector.apply(cmd, a.cfg)
			return runBuild(cmd, a, opts)
		},
	}

	opts.collector.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "topology output file (default <output_dir>/topology.<format>)")
	cmd.Flags().StringVar(&opts.visualization, "visualization-output", "", "visualization output file (default <output_dir>/visualization.<format>)")
	cmd.Flags().StringVar(&opts.ansible, "ansible-output", "", "also write an Ansible inventory to this file")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "document format (json, yaml)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "record the build in the snapshot database")
	return cmd
}

func runBuild(cmd *cobra.Command, a *app, opts buildOptions) error {
	ctx := cmd.Context()

	c, err := codec.ForFormat(opts.format)
	if err != nil {
		return err
	}
	ext := c.Format()
	if opts.output == "" {
		opts.output = filepath.Join(a.cfg.Build.OutputDir, "topology."+ext)
	}
	if opts.visualization == "" {
		opts.visualization = filepath.Join(a.cfg.Build.OutputDir, "visualization."+ext)
	}

	src, cleanup, firewallIP, err := a.openCollector(ctx, opts.collector)
	if err != nil {
		return err
	}
	defer cleanup()

	var repo repository.Repository
	if opts.save {
		db, err := sqlite.New(a.cfg.Database.Path, a.logger.Named("sqlite"))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		repo = db
	}

	builder := topology.NewBuilder(src,
		topology.WithLogger(a.logger.Named("builder")),
		topology.WithFirewallIP(firewallIP),
	)
	svc := service.NewTopologyService(builder, repo, nil, a.logger.Named("service"),
		service.WithHistoryLimit(a.cfg.Build.HistoryLimit))

	b, _, err := svc.Rebuild(ctx)
	if err != nil {
		return err
	}

	if err := codec.WriteFile(opts.output, c, b.Graph); err != nil {
		return err
	}
	if err := codec.WriteFile(opts.visualization, c, b.Visualization); err != nil {
		return err
	}
	if opts.ansible != "" {
		if err := writeAnsible(opts.ansible, b.Graph); err != nil {
			return err
		}
	}
	a.logger.Info("Wrote topology",
		zap.String("build", b.ID),
		zap.String("topology", opts.output),
		zap.String("visualization", opts.visualization))

	printSummary(a.out, b, opts)
	return nil
}

func writeAnsible(path string, g *domain.TopologyGraph) error {
	exp, err := codec.ExporterForFormat("ansible-inventory")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := exp.ExportGraph(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// summaryRows orders the device summary printed after a build
var summaryRows = []struct {
	label    string
	category domain.Category
}{
	{"Firewall", domain.CategoryFirewall},
	{"Switches", domain.CategorySwitch},
	{"Access Points", domain.CategoryAccessPoint},
	{"Endpoints", domain.CategoryEndpoint},
	{"Interfaces", domain.CategoryInterface},
}

func printSummary(w io.Writer, b *domain.Build, opts buildOptions) {
	rule := strings.Repeat("=", 60)
	meta := b.Graph.Metadata

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "FortiGate Topology Extraction Complete!")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Build: %s\n", b.ID)
	fmt.Fprintf(w, "Devices discovered: %d\n", len(b.Graph.Devices))
	fmt.Fprintf(w, "Connections mapped: %d\n", len(b.Graph.Connections))
	fmt.Fprintf(w, "Topology saved to: %s\n", opts.output)
	fmt.Fprintf(w, "Visualization saved to: %s\n", opts.visualization)
	if opts.ansible != "" {
		fmt.Fprintf(w, "Ansible inventory: %s\n", opts.ansible)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Device Summary:")
	for _, row := range summaryRows {
		n := meta.DeviceCounts.Get(row.category)
		fmt.Fprintf(w, "  %s: %d", row.label, n)
		// Counts are taken before the per-category caps
		if shown := b.Graph.CountByCategory(row.category); shown < n {
			fmt.Fprintf(w, " (%d shown)", shown)
		}
		if meta.IsDegraded(row.category) {
			fmt.Fprint(w, " (degraded)")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "  Total reported: %d\n", meta.DeviceCounts.Total())
	fmt.Fprintln(w, rule)
}
