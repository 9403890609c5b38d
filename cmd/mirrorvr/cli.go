// Copyright (c) 2016 Western Digital Corporation or its affiliates.  All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/codegangsta/cli"
	"github.com/dustin/go-humanize"
	shlex "github.com/flynn-archive/go-shlex"
	"github.com/peterh/liner"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	log "github.com/golang/glog"
	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
	"github.com/westerndigitalcorporation/mirrorvr/internal/engine"
	"github.com/westerndigitalcorporation/mirrorvr/internal/fixture"
	"github.com/westerndigitalcorporation/mirrorvr/internal/planner"
	"github.com/westerndigitalcorporation/mirrorvr/internal/report"
	"github.com/westerndigitalcorporation/mirrorvr/pkg/failures"
)

var usage = `
	mirrorvr plans and runs mirror verify sub-requests offline. A job file
	describes one sub-request and the error regions the checker found; the
	tool sizes it, allocates and stitches its buffers from a local pool, and
	reports the regions through the event log exactly as a running array
	would.

	Issue one command:

		mirrorvr [--config <file>] [(--setup <setup-commands>)...] <subcommand> [<flags>...]

	or start an interpreter, which keeps the engine, its failure configuration
	and the logged events between commands:

		mirrorvr [--config <file>] shell

	For example, the command below stages expected regions and then verifies
	a job against them:

		mirrorvr --setup "fset mirror_verify_expected_regions '[]'" verify -f job.json
	`

// vrCli holds the engine shared by the commands of one invocation or shell
// session.
type vrCli struct {
	app *cli.App

	cfg    engine.Config
	eng    *engine.Engine
	pool   *engine.Pool
	events *report.EventBuffer
	closer func() error

	// True if we are running a shell.
	inShell bool
	// True once the status server is listening.
	serving bool
}

func newVrCli() *vrCli {
	v := &vrCli{events: &report.EventBuffer{}}
	app := cli.NewApp()
	app.Name = "mirrorvr"

	app.Usage = usage
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "JSON engine config, applied over the production defaults",
		},
		cli.BoolFlag{
			Name:  "test",
			Usage: "Start from the test config instead of the production one",
		},
		cli.StringSliceFlag{
			Name:  "setup",
			Usage: "Commands to run before doing anything else",
		},
	}

	jobFlag := cli.StringFlag{
		Name:  "file, f",
		Usage: "job file describing the sub-request",
	}

	app.Commands = []cli.Command{
		{
			Name:    "plan",
			Aliases: []string{"p"},
			Usage:   "Sizes a job and prints its reads and pages.",
			Flags:   []cli.Flag{jobFlag},
			Action:  v.cmdPlan,
		},
		{
			Name:    "verify",
			Aliases: []string{"v"},
			Usage:   "Prepares a job, completes it with the job's regions and prints the events.",
			Flags:   []cli.Flag{jobFlag},
			Action:  v.cmdVerify,
		},
		{
			Name:  "events",
			Usage: "Prints the events logged so far.",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "clear",
					Usage: "Forget the events after printing them",
				},
			},
			Action: v.cmdEvents,
		},
		{
			Name:   "config",
			Usage:  "Prints the engine config in effect.",
			Action: v.cmdConfig,
		},
		{
			Name:  "serve",
			Usage: "Serves metrics, and the failure service when enabled, over HTTP. Useful from the shell.",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "addr",
					Usage: "address to listen on",
					Value: "localhost:4040",
				},
			},
			Action: v.cmdServe,
		},
		{
			Name:   "shell",
			Usage:  "Starts an interpreter.",
			Action: v.cmdShell,
		},
		{
			Name:   "fget",
			Usage:  "Return the current failure configuration.",
			Action: v.cmdFailureConfigGet,
		},
		{
			Name:  "fset",
			Usage: "Update the current failure configuration.",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "replace",
					Usage: "Replace the failure configuration in entirety, the missing keys will be reset to values 'null(nil)'",
				},
			},
			ArgsUsage: "<key1> <value1> <key2> <value2> ...",
			Description: `
Update the failure configuration by giving it a list of key-value pairs. If "--replace" is
specified the entire configuration is replaced, and keys missing from the arguments are reset
to null(nil).`,
			Action: v.cmdFailureConfigSet,
		},
	}
	app.Before = v.beforeSubcommandRun
	v.app = app

	for i := range v.app.Commands {
		v.app.Commands[i].HelpName = v.app.Commands[i].Name
	}
	return v
}

func (v *vrCli) run(args []string) error {
	return v.app.Run(args)
}

// stop flushes the journal, if any.
func (v *vrCli) stop() {
	if v.closer != nil {
		if err := v.closer(); err != nil {
			log.Errorf("failed to close the journal: %s", err)
		}
		v.closer = nil
	}
}

func (v *vrCli) beforeSubcommandRun(c *cli.Context) error {
	commands := c.GlobalStringSlice("setup")
	if len(commands) != 0 {
		log.Infof("Running setup commands...")
		for _, command := range commands {
			args, err := shlex.Split(command)
			if err != nil {
				return err
			}
			log.Infof("Running command %q", command)
			if err := v.runCommand(c, args...); err != nil {
				log.Errorf("error: %v", err)
				return err
			}
		}
		log.Infof("Setup is done!")
	}
	return nil
}

// getEngine returns the engine, creating it on first use. The engine, the
// pool and the failure registrations live as long as the process.
func (v *vrCli) getEngine(c *cli.Context) (*engine.Engine, error) {
	if v.eng != nil {
		return v.eng, nil
	}
	cfg := engine.DefaultProdConfig
	if c.GlobalBool("test") {
		cfg = engine.DefaultTestConfig
	}
	if path := c.GlobalString("config"); path != "" {
		var err error
		if cfg, err = engine.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	limit := cfg.PoolBytes
	if limit == 0 {
		var err error
		if limit, err = engine.PoolBytesFromSystem(cfg.PoolMemoryShare); err != nil {
			return nil, err
		}
	}

	expected, err := fixture.New(failures.Default)
	if err != nil {
		return nil, err
	}
	events, closer, err := engine.WithJournal(cfg, v.events)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(cfg, events, expected, failures.Default)
	if err != nil {
		closer()
		return nil, err
	}
	v.cfg, v.eng, v.closer = cfg, eng, closer
	v.pool = engine.NewPool(limit)
	log.Infof("engine ready, pool of %s", humanize.IBytes(limit))
	return eng, nil
}

func (v *vrCli) getJob(c *cli.Context) (*job, bool) {
	path := c.String("file")
	if path == "" {
		log.Errorf("no job file given, use --file/-f")
		return nil, false
	}
	j, err := loadJob(path)
	if err != nil {
		log.Errorf("error: %s", err)
		return nil, false
	}
	return j, true
}

// cmdPlan implements the "plan" subcommand.
func (v *vrCli) cmdPlan(c *cli.Context) {
	j, ok := v.getJob(c)
	if !ok {
		return
	}
	if _, err := v.getEngine(c); err != nil {
		log.Errorf("error: %s", err)
		return
	}
	sub, err := j.subRequest()
	if err != nil {
		log.Errorf("error: %s", err)
		return
	}
	table, release, err := j.parentTable(v.pool)
	if err != nil {
		log.Errorf("error: %s", err)
		return
	}
	defer release()

	if err := planner.Validate(sub); err != nil {
		log.Errorf("invalid sub-request: %s", err)
		return
	}
	parent, err := planner.ResolveParent(sub, table)
	if err != nil {
		log.Errorf("error: %s", err)
		return
	}
	plan, err := planner.Memory(sub, parent, v.cfg.Layout)
	if core.ErrMustSplit.Is(err) {
		fmt.Printf("%s must be split\n", sub)
		if err = planner.Fit(sub, parent); err == nil {
			fmt.Printf("reduced to 0x%x blocks\n", sub.ParityCount)
			plan, err = planner.Memory(sub, parent, v.cfg.Layout)
		}
	}
	if err != nil {
		log.Errorf("error: %s", err)
		return
	}
	printPlan(sub, plan)
}

func printPlan(sub *planner.SubRequest, plan *planner.MemoryPlan) {
	fmt.Printf("%s\n", sub)
	fmt.Printf("fresh blocks 0x%x, parent blocks 0x%x\n", plan.TotalBlocks, plan.ParentBlocks)
	fmt.Printf("data pages %d of %s, control pages %d of %s\n",
		plan.Pages.Data, humanize.IBytes(uint64(plan.PageBytes())),
		plan.Pages.Control, humanize.IBytes(plan.CtrlPageBlocks*core.BytesPerBlock))
	for _, d := range plan.Reads {
		if d.Idle() {
			fmt.Printf("  pos %d: idle\n", d.Position)
			continue
		}
		fmt.Printf("  pos %d: lba 0x%x blocks 0x%x %s, %d fragments\n", d.Position, d.LBA, d.Blocks, d.Class, d.Fragments)
	}
}

// cmdVerify implements the "verify" subcommand.
func (v *vrCli) cmdVerify(c *cli.Context) {
	j, ok := v.getJob(c)
	if !ok {
		return
	}
	eng, err := v.getEngine(c)
	if err != nil {
		log.Errorf("error: %s", err)
		return
	}
	sub, err := j.subRequest()
	if err != nil {
		log.Errorf("error: %s", err)
		return
	}
	pass, err := j.pass()
	if err != nil {
		log.Errorf("error: %s", err)
		return
	}
	table, release, err := j.parentTable(v.pool)
	if err != nil {
		log.Errorf("error: %s", err)
		return
	}
	defer release()

	p, err := eng.Prepare(sub, table, v.pool)
	if core.ErrMustSplit.Is(err) {
		parent, perr := planner.ResolveParent(sub, table)
		if perr != nil {
			log.Errorf("error: %s", perr)
			return
		}
		if err = planner.Fit(sub, parent); err == nil {
			log.Infof("reduced to 0x%x blocks", sub.ParityCount)
			p, err = eng.Prepare(sub, table, v.pool)
		}
	}
	if err != nil {
		log.Errorf("prepare failed: %s", err)
		return
	}
	fmt.Printf("prepared %s, %s in use\n", sub, humanize.IBytes(v.pool.Used()))

	before := len(v.events.Events())
	state, err := eng.Complete(p, pass, &printDispatcher{p: p})
	if err == nil && state == report.AwaitingRetryDisplay {
		state, err = eng.RetryComplete(p)
	}
	if err != nil {
		eng.Release(p)
		log.Errorf("complete failed in state %s: %s", state, err)
		return
	}
	for _, e := range v.events.Events()[before:] {
		fmt.Println(e)
	}
	fmt.Printf("%s, %s in use\n", state, humanize.IBytes(v.pool.Used()))
}

// printDispatcher stands in for the disk layer: every read that moved data
// can be reissued, and reissuing completes at once.
type printDispatcher struct {
	p *engine.Prepared
}

func (d *printDispatcher) DisplayBlocks(lba core.LBA) error {
	fmt.Printf("display blocks at lba 0x%x\n", lba)
	return nil
}

func (d *printDispatcher) ActiveReads() (m core.PositionMask) {
	for _, r := range d.p.Reads {
		if r.Blocks > 0 {
			m = m.Set(r.Position)
		}
	}
	return
}

func (d *printDispatcher) RetryReads(m core.PositionMask) error {
	fmt.Printf("reissue reads on %s\n", m)
	return nil
}

// cmdEvents implements the "events" subcommand.
func (v *vrCli) cmdEvents(c *cli.Context) {
	for _, e := range v.events.Events() {
		fmt.Println(e)
	}
	if c.Bool("clear") {
		v.events.Reset()
	}
}

// cmdConfig implements the "config" subcommand.
func (v *vrCli) cmdConfig(c *cli.Context) {
	if _, err := v.getEngine(c); err != nil {
		log.Errorf("error: %s", err)
		return
	}
	data, err := json.MarshalIndent(v.cfg, "", "  ")
	if err != nil {
		log.Errorf("Failed to encode config to JSON: %v", err)
		return
	}
	fmt.Println(string(data))
}

// cmdServe implements the "serve" subcommand.
func (v *vrCli) cmdServe(c *cli.Context) {
	if v.serving {
		log.Errorf("already serving")
		return
	}
	if _, err := v.getEngine(c); err != nil {
		log.Errorf("error: %s", err)
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	if v.cfg.UseFailure {
		failures.Init()
	}
	addr := c.String("addr")
	v.serving = true
	go func() {
		log.Errorf("status server on %s stopped: %v", addr, http.ListenAndServe(addr, nil))
	}()
	log.Infof("serving on %s", addr)
	if !v.inShell {
		// Nothing else will keep the process alive.
		select {}
	}
}

// cmdShell implements "shell" subcommand.
func (v *vrCli) cmdShell(c *cli.Context) {
	v.inShell = true
	defer func() { v.inShell = false }()

	// Make cli not exit on errors.
	cli.OsExiter = func(int) {}

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	// Complete command names.
	line.SetCompleter(func(l string) (c []string) {
		for _, cmd := range v.app.Commands {
			if strings.HasPrefix(cmd.Name, l) {
				c = append(c, cmd.Name)
			}
		}
		return
	})

	defer line.Close()

	for {
		input, err := line.Prompt("(mirrorvr) ")
		if err != nil {
			log.Errorf("error: %v", err)
			return
		}

		// Split with shell-style quoting so JSON values survive.
		args, err := shlex.Split(input)
		if err != nil {
			log.Errorf("error:%v", err)
			continue
		}

		if 0 == len(args) {
			continue
		}

		if args[0] == "exit" {
			return
		}

		if v.runCommand(c, args...) == nil {
			line.AppendHistory(input)
		}
	}
}

// cmdFailureConfigGet implements "fget" subcommand.
func (v *vrCli) cmdFailureConfigGet(c *cli.Context) {
	if _, err := v.getEngine(c); err != nil {
		log.Errorf("error: %s", err)
		return
	}
	data, err := json.Marshal(failures.Default)
	if err != nil {
		log.Errorf("Failed to encode failure config to JSON: %v", err)
		return
	}
	fmt.Println(string(data))
}

// cmdFailureConfigSet implements "fset" subcommand.
func (v *vrCli) cmdFailureConfigSet(c *cli.Context) {
	kvs := c.Args()
	if len(kvs)%2 != 0 {
		v.app.Run([]string{"mirrorvr", c.Command.Name, "-h"})
		return
	}
	if _, err := v.getEngine(c); err != nil {
		log.Errorf("error: %s", err)
		return
	}

	config := make(map[string]json.RawMessage)
	for i := 0; i < len(kvs); i += 2 {
		config[kvs[i]] = json.RawMessage(kvs[i+1])
	}

	var err error
	var method string
	if c.Bool("replace") {
		var body []byte
		if body, err = json.Marshal(config); err == nil {
			err = failures.Default.Apply(body)
		}
		method = "replace"
	} else {
		for key, value := range config {
			if err = failures.Default.Stage(key, value); err != nil {
				break
			}
		}
		method = "update"
	}
	if err != nil {
		log.Errorf("Failed to %s the failure config: %v", method, err)
		return
	}
	log.Infof("Successfully %sd the failure config", method)
}

// runCommand runs a command once the cli is going, from the interpreter or
// the setup flags.
func (v *vrCli) runCommand(c *cli.Context, args ...string) error {
	vrArgs := []string{"mirrorvr"}
	if path := c.GlobalString("config"); path != "" {
		vrArgs = append(vrArgs, "--config", path)
	}
	if c.GlobalBool("test") {
		vrArgs = append(vrArgs, "--test")
	}
	vrArgs = append(vrArgs, args...)
	return v.run(vrArgs)
}
