package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xmdhs/regioncopy/box"
	"github.com/xmdhs/regioncopy/config"
	"github.com/xmdhs/regioncopy/edit"
	"github.com/xmdhs/regioncopy/materials"
	"github.com/xmdhs/regioncopy/rotation"
	"github.com/xmdhs/regioncopy/schematic"
	"github.com/xmdhs/regioncopy/undo"
)

var ErrCancelled = errors.New("cancelled")

type app struct {
	cfg *config.Config
	log *logrus.Logger
}

func main() {
	a := &app{log: logrus.StandardLogger()}
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "regioncopy",
		Short:         "Copy, fill and move blocks between Minecraft worlds and schematics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			lvl, _ := cfg.Level()
			a.log.SetLevel(lvl)
			a.cfg = cfg
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "regioncopy.yaml", "config file")

	rootCmd.AddCommand(
		a.copyCmd(),
		a.fillCmd(),
		a.nudgeCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.rotateCmd(),
		a.infoCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

type boxFlags struct {
	from, size string
}

func (f *boxFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "lowest corner x,y,z")
	cmd.Flags().StringVar(&f.size, "size", "", "size x,y,z")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("size")
}

func (f *boxFlags) box() (box.BoundingBox, error) {
	o, err := parseVec(f.from)
	if err != nil {
		return box.BoundingBox{}, err
	}
	s, err := parseVec(f.size)
	if err != nil {
		return box.BoundingBox{}, err
	}
	return box.New(o, s), nil
}

// copyFlags override the config's copy section when set.
type copyFlags struct {
	only                                         []string
	entities, biomes, ticks, create, uuids, cmds bool
}

func (f *copyFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.only, "only", nil, "copy only these blocks")
	cmd.Flags().BoolVar(&f.entities, "entities", true, "copy entities")
	cmd.Flags().BoolVar(&f.biomes, "biomes", false, "copy biomes")
	cmd.Flags().BoolVar(&f.ticks, "tile-ticks", true, "copy scheduled block ticks")
	cmd.Flags().BoolVar(&f.create, "create-chunks", false, "create missing destination chunks")
	cmd.Flags().BoolVar(&f.uuids, "new-uuids", true, "give copied entities new UUIDs")
	cmd.Flags().BoolVar(&f.cmds, "relocate", true, "shift coordinates in command blocks and spawners")
}

func (a *app) copyOptions(cmd *cobra.Command, f *copyFlags, mat *materials.Table) (edit.CopyOptions, error) {
	o := a.cfg.CopyOptions()
	fl := cmd.Flags()
	if fl.Changed("entities") {
		o.CopyEntities = f.entities
	}
	if fl.Changed("biomes") {
		o.CopyBiomes = f.biomes
	}
	if fl.Changed("tile-ticks") {
		o.CopyTileTicks = f.ticks
	}
	if fl.Changed("create-chunks") {
		o.CreateMissingChunks = f.create
	}
	if fl.Changed("new-uuids") {
		o.RegenerateUUIDs = f.uuids
	}
	if fl.Changed("relocate") {
		o.RelocateCommandBlocks = f.cmds
		o.RelocateSpawners = f.cmds
	}
	for _, s := range f.only {
		b, err := mat.ParseBlock(s)
		if err != nil {
			return o, err
		}
		o.BlockFilter = append(o.BlockFilter, b)
	}
	o.Logger = a.log
	return o, nil
}

// run drives op with a progress bar. A cancelled or failed run is rolled
// back through j, which may be nil, when the config asks for it.
func (a *app) run(ctx context.Context, op *edit.Operation, j *undo.Journal) error {
	var bar *progressbar.ProgressBar
	if *a.cfg.Progress && op.Total() > 0 {
		bar = progressbar.Default(int64(op.Total()), op.Name())
	}
	err := edit.Run(ctx, op, func(s edit.Step) {
		if bar != nil {
			bar.Set(s.Done)
		}
	})
	if bar != nil {
		bar.Finish()
	}
	if err == nil && op.Done() {
		return nil
	}
	if *a.cfg.Rollback && j != nil && j.Len() > 0 {
		n := j.Len()
		if uerr := j.Undo(); uerr != nil {
			return errors.Join(err, uerr)
		}
		a.log.WithField("chunks", n).Warn("rolled back")
	}
	if err != nil {
		return err
	}
	return ErrCancelled
}

func (a *app) journal() (*undo.Journal, error) {
	return undo.New(a.log)
}

func finish(w *world, err error) error {
	if err == nil {
		err = w.save()
	}
	return errors.Join(err, w.close())
}

func (a *app) copyCmd() *cobra.Command {
	var bf boxFlags
	var cf copyFlags
	var to string
	cmd := &cobra.Command{
		Use:   "copy <source> <dest>",
		Short: "Copy a box from one world into another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bf.box()
			if err != nil {
				return err
			}
			origin, err := parseVec(to)
			if err != nil {
				return err
			}
			src, err := openWorld(args[0], a.log)
			if err != nil {
				return err
			}
			dst := src
			if !sameWorld(args[0], args[1]) {
				defer src.close()
				dst, err = openWorld(args[1], a.log)
				if err != nil {
					return err
				}
			}
			return finish(dst, a.copy(cmd, &cf, dst, src, b, origin))
		},
	}
	bf.add(cmd)
	cf.add(cmd)
	cmd.Flags().StringVar(&to, "to", "", "destination corner x,y,z")
	cmd.MarkFlagRequired("to")
	return cmd
}

func (a *app) copy(cmd *cobra.Command, cf *copyFlags, dst, src *world, b box.BoundingBox, origin box.Vec) error {
	opts, err := a.copyOptions(cmd, cf, src.level.Materials())
	if err != nil {
		return err
	}
	j, err := a.journal()
	if err != nil {
		return err
	}
	defer j.Close()
	opts.Journal = j
	op, err := edit.CopyRegion(dst.level, src.level, b, origin, opts)
	if err != nil {
		return err
	}
	return a.run(cmd.Context(), op, j)
}

func (a *app) fillCmd() *cobra.Command {
	var bf boxFlags
	var block string
	var replace []string
	var opts edit.FillOptions
	cmd := &cobra.Command{
		Use:   "fill <world>",
		Short: "Fill a box with one block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bf.box()
			if err != nil {
				return err
			}
			w, err := openWorld(args[0], a.log)
			if err != nil {
				return err
			}
			return finish(w, func() error {
				mat := w.level.Materials()
				target, err := mat.ParseBlock(block)
				if err != nil {
					return err
				}
				var rs []materials.Block
				for _, s := range replace {
					r, err := mat.ParseBlock(s)
					if err != nil {
						return err
					}
					rs = append(rs, r)
				}
				j, err := a.journal()
				if err != nil {
					return err
				}
				defer j.Close()
				opts.Journal, opts.Logger = j, a.log
				op, err := edit.Fill(w.level, b, target, rs, opts)
				if err != nil {
					return err
				}
				return a.run(cmd.Context(), op, j)
			}())
		},
	}
	bf.add(cmd)
	cmd.Flags().StringVar(&block, "block", "", "block to place, name or id[:data]")
	cmd.Flags().StringSliceVar(&replace, "replace", nil, "only replace these blocks")
	cmd.Flags().BoolVar(&opts.PreserveData, "keep-data", false, "keep the data value of replaced blocks")
	cmd.Flags().BoolVar(&opts.ClearEntities, "clear-entities", false, "remove entities in the box")
	cmd.MarkFlagRequired("block")
	return cmd
}

func (a *app) nudgeCmd() *cobra.Command {
	var bf boxFlags
	var cf copyFlags
	var by string
	cmd := &cobra.Command{
		Use:   "nudge <world>",
		Short: "Move a box by an offset and clear where it was",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bf.box()
			if err != nil {
				return err
			}
			off, err := parseVec(by)
			if err != nil {
				return err
			}
			w, err := openWorld(args[0], a.log)
			if err != nil {
				return err
			}
			return finish(w, func() error {
				opts, err := a.copyOptions(cmd, &cf, w.level.Materials())
				if err != nil {
					return err
				}
				j, err := a.journal()
				if err != nil {
					return err
				}
				defer j.Close()
				opts.Journal = j
				op, err := edit.Nudge(w.level, b, off, opts)
				if err != nil {
					return err
				}
				return a.run(cmd.Context(), op, j)
			}())
		},
	}
	bf.add(cmd)
	cf.add(cmd)
	cmd.Flags().StringVar(&by, "by", "", "offset x,y,z")
	cmd.MarkFlagRequired("by")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var bf boxFlags
	var cf copyFlags
	cmd := &cobra.Command{
		Use:   "export <world> <out.schematic>",
		Short: "Save a box of a world as a schematic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bf.box()
			if err != nil {
				return err
			}
			w, err := openWorld(args[0], a.log)
			if err != nil {
				return err
			}
			defer w.close()
			opts, err := a.copyOptions(cmd, &cf, w.level.Materials())
			if err != nil {
				return err
			}
			opts.CreateMissingChunks = false
			s, op, err := schematic.Extract(w.level, b, opts)
			if err != nil {
				return err
			}
			if err := a.run(cmd.Context(), op, nil); err != nil {
				return err
			}
			return writeSchematic(args[1], s)
		},
	}
	bf.add(cmd)
	cf.add(cmd)
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var cf copyFlags
	var to string
	cmd := &cobra.Command{
		Use:   "import <in.schematic> <world>",
		Short: "Paste a schematic into a world",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			origin, err := parseVec(to)
			if err != nil {
				return err
			}
			src, err := openWorld(args[0], a.log)
			if err != nil {
				return err
			}
			s, ok := src.level.(*schematic.Schematic)
			if !ok {
				return fmt.Errorf("import %s: not a schematic", args[0])
			}
			w, err := openWorld(args[1], a.log)
			if err != nil {
				return err
			}
			return finish(w, a.copy(cmd, &cf, w, src, s.Box(), origin))
		},
	}
	cf.add(cmd)
	cmd.Flags().StringVar(&to, "to", "", "destination corner x,y,z")
	cmd.MarkFlagRequired("to")
	return cmd
}

func (a *app) rotateCmd() *cobra.Command {
	var name string
	var times int
	cmd := &cobra.Command{
		Use:   "rotate <in.schematic> <out.schematic>",
		Short: "Rotate or mirror a schematic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := rotation.ParseOp(name)
			if err != nil {
				return err
			}
			src, err := openWorld(args[0], a.log)
			if err != nil {
				return err
			}
			s, ok := src.level.(*schematic.Schematic)
			if !ok {
				return fmt.Errorf("rotate %s: not a schematic", args[0])
			}
			tables, err := rotation.Default(s.Materials(), a.log)
			if err != nil {
				return err
			}
			for i := 0; i < times; i++ {
				if s, err = s.Transform(tables, op); err != nil {
					return err
				}
			}
			a.log.WithFields(logrus.Fields{"op": op, "times": times, "size": s.Size()}).Info("transformed")
			return writeSchematic(args[1], s)
		},
	}
	cmd.Flags().StringVar(&name, "op", rotation.RotateLeft.String(), "rotate-left, roll, flip-vertical, flip-east-west or flip-north-south")
	cmd.Flags().IntVar(&times, "times", 1, "how many times to apply the operation")
	return cmd
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <world>",
		Short: "Describe a world or schematic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := openWorld(args[0], a.log)
			if err != nil {
				return err
			}
			defer w.close()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "materials: %s\nheight: %d\n", w.level.Materials().Name(), w.level.Height())
			if s, ok := w.level.(*schematic.Schematic); ok {
				fmt.Fprintf(out, "size: %v\n", s.Size())
				return nil
			}
			ps, err := w.positions()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "chunks: %d\n", len(ps))
			if len(ps) > 0 {
				lo, hi := ps[0], ps[0]
				for _, p := range ps[1:] {
					lo.X, lo.Z = min(lo.X, p.X), min(lo.Z, p.Z)
					hi.X, hi.Z = max(hi.X, p.X), max(hi.Z, p.Z)
				}
				fmt.Fprintf(out, "chunk range: %d,%d .. %d,%d\n", lo.X, lo.Z, hi.X, hi.Z)
			}
			return nil
		},
	}
}
