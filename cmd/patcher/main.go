package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/vondutchi/vondutch-patcher/pkg/config"
	"github.com/vondutchi/vondutch-patcher/pkg/events"
	"github.com/vondutchi/vondutch-patcher/pkg/freezer"
	"github.com/vondutchi/vondutch-patcher/pkg/memaccess"
	"github.com/vondutchi/vondutch-patcher/pkg/mods"
	"github.com/vondutchi/vondutch-patcher/pkg/proc"
	"github.com/vondutchi/vondutch-patcher/pkg/scanner"
	"github.com/vondutchi/vondutch-patcher/pkg/version"
)

// CLI drives the engine interactively: attach, scan, freeze, clear.
type CLI struct {
	log        *events.MemoryLog
	supervisor *proc.Supervisor
	manager    *mods.Manager
	store      *config.Store

	// Manual scan workspace, rebuilt on attach.
	acc      memaccess.Accessor
	engine   *scanner.Engine
	session  *scanner.Session
	registry *freezer.Registry
	scanBase uintptr
	scanLen  int

	color   bool
	running bool
}

func main() {
	log := events.NewMemoryLog()

	store, err := config.NewStore("configs", log)
	if err != nil {
		fmt.Printf("Failed to create config store: %v\n", err)
		os.Exit(1)
	}

	manager := mods.NewManager(log)
	manager.Discover()

	c := &CLI{
		log:        log,
		supervisor: proc.NewSupervisor(log),
		manager:    manager,
		store:      store,
		color:      isatty.IsTerminal(os.Stdout.Fd()),
	}

	fmt.Println(version.GetVersionInfo())
	fmt.Println("Offline single-player trainer. Do not use against online games.")
	c.Start()
}

// Start begins the command loop
func (c *CLI) Start() {
	c.running = true
	reader := bufio.NewReader(os.Stdin)

	c.printHelp()

	for c.running {
		fmt.Print("(patcher) ")
		input, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		c.handleCommand(strings.TrimSpace(input))

		// One mod poll per command keeps resolved freezes registered; the
		// registries' own loops do the continuous rewriting.
		if c.supervisor.Attached() {
			c.manager.Tick()
		}
	}

	c.shutdown()
}

// printHelp displays available commands
func (c *CLI) printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  ps                  - List processes (blocked ones are marked)")
	fmt.Println("  attach <pid>        - Attach to a process")
	fmt.Println("  detach              - Detach from the current process")
	fmt.Println("\nScanning:")
	fmt.Println("  scan <base> <len>   - Take the baseline snapshot (hex base)")
	fmt.Println("  delta <n>           - Narrow to values that changed by n")
	fmt.Println("  exact <v>           - Narrow to values currently equal to v")
	fmt.Println("  undo                - Drop the last narrowing stage")
	fmt.Println("  candidates          - Show current candidate addresses")
	fmt.Println("  dump <file>         - Save the baseline snapshot to a file")
	fmt.Println("\nFreezing:")
	fmt.Println("  freeze <addr> <v>   - Freeze value v at hex address addr")
	fmt.Println("  frozen              - List frozen entries")
	fmt.Println("  clear               - Clear all freezes")
	fmt.Println("\nMods:")
	fmt.Println("  mods                - List mods and their state")
	fmt.Println("  enable <name>       - Enable a mod")
	fmt.Println("  disable <name>      - Disable a mod")
	fmt.Println("  resolve <name> <addr> - Hand a scanned address to a mod")
	fmt.Println("  save / load         - Persist/restore the profile for this process")
	fmt.Println("\nGeneral:")
	fmt.Println("  log                 - Show recent engine events")
	fmt.Println("  help                - Show this help message")
	fmt.Println("  quit                - Exit")
}

// handleCommand processes user input
func (c *CLI) handleCommand(input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "h", "help":
		c.printHelp()
	case "ps":
		c.handleList()
	case "attach":
		c.handleAttach(args)
	case "detach":
		c.handleDetach()
	case "scan":
		c.handleScan(args)
	case "delta":
		c.handleDelta(args)
	case "exact":
		c.handleExact(args)
	case "undo":
		c.handleUndo()
	case "candidates":
		c.handleCandidates()
	case "dump":
		c.handleDump(args)
	case "freeze":
		c.handleFreeze(args)
	case "frozen":
		c.handleFrozen()
	case "clear":
		c.handleClear()
	case "mods":
		c.handleMods()
	case "enable":
		c.handleEnable(args, true)
	case "disable":
		c.handleEnable(args, false)
	case "resolve":
		c.handleResolve(args)
	case "save":
		c.handleSave()
	case "load":
		c.handleLoad()
	case "log":
		c.handleLog()
	case "q", "quit", "exit":
		c.running = false
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
	}
}

func (c *CLI) handleList() {
	infos, err := c.supervisor.List()
	if err != nil {
		fmt.Printf("Error listing processes: %v\n", err)
		return
	}
	for _, info := range infos {
		mark := ""
		if info.Blocked {
			mark = "  [BLOCKED]"
		}
		fmt.Printf("%8d  %s%s\n", info.Pid, info.Name, mark)
	}
}

func (c *CLI) handleAttach(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: attach <pid>")
		return
	}
	pid, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		fmt.Printf("Invalid pid: %v\n", err)
		return
	}

	session, err := c.supervisor.Attach(int32(pid))
	if err != nil {
		fmt.Printf("Attach failed: %v\n", err)
		return
	}

	acc := session.Accessor()
	c.acc = acc
	c.engine = scanner.New(acc, c.log)
	c.session = scanner.NewSession(c.engine)
	c.registry = freezer.New(acc, c.log)
	c.manager.AttachAll(acc, session.Name)

	fmt.Printf("Attached to %s (pid %d)\n", session.Name, session.Pid)
}

func (c *CLI) handleDetach() {
	if !c.supervisor.Attached() {
		fmt.Println("Not attached")
		return
	}

	// Stop every writer before revoking the handle.
	c.manager.DetachAll()
	if c.registry != nil {
		c.registry.Clear()
	}
	c.supervisor.Detach()
	c.acc = nil
	c.engine = nil
	c.session = nil
	c.registry = nil
	c.scanBase = 0
	c.scanLen = 0

	fmt.Println("Detached")
}

func (c *CLI) requireSession() bool {
	if c.session == nil {
		fmt.Println("Not attached; use attach <pid> first")
		return false
	}
	return true
}

func (c *CLI) handleScan(args []string) {
	if !c.requireSession() {
		return
	}
	if len(args) < 2 {
		fmt.Println("Usage: scan <base-hex> <length>")
		return
	}
	base, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 64)
	if err != nil {
		fmt.Printf("Invalid base address: %v\n", err)
		return
	}
	length, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Printf("Invalid length: %v\n", err)
		return
	}

	if err := c.session.Begin(uintptr(base), length); err != nil {
		fmt.Printf("Scan failed: %v\n", err)
		return
	}
	c.scanBase = uintptr(base)
	c.scanLen = length
	fmt.Printf("Baseline snapshot taken at %#x. Change the value in-game, then run delta <n>.\n", base)
}

func (c *CLI) handleDelta(args []string) {
	if !c.requireSession() {
		return
	}
	if len(args) < 1 {
		fmt.Println("Usage: delta <n>")
		return
	}
	delta, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		fmt.Printf("Invalid delta: %v\n", err)
		return
	}

	candidates, err := c.session.Delta(int32(delta))
	if err != nil {
		fmt.Printf("Delta scan failed: %v\n", err)
		return
	}
	fmt.Printf("%d candidates\n", len(candidates))
}

func (c *CLI) handleExact(args []string) {
	if !c.requireSession() {
		return
	}
	if len(args) < 1 {
		fmt.Println("Usage: exact <value>")
		return
	}
	value, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		fmt.Printf("Invalid value: %v\n", err)
		return
	}

	candidates, err := c.session.Exact(int32(value))
	if err != nil {
		fmt.Printf("Exact filter failed: %v\n", err)
		return
	}
	fmt.Printf("%d candidates\n", len(candidates))
}

func (c *CLI) handleUndo() {
	if !c.requireSession() {
		return
	}
	candidates, err := c.session.Undo()
	if err != nil {
		fmt.Printf("Undo failed: %v\n", err)
		return
	}
	fmt.Printf("Back to %d candidates\n", len(candidates))
}

func (c *CLI) handleCandidates() {
	if !c.requireSession() {
		return
	}
	candidates := c.session.Candidates()
	if len(candidates) == 0 {
		fmt.Println("No candidates; run scan/delta first")
		return
	}
	for _, addr := range candidates {
		line := fmt.Sprintf("  %#x", addr)
		if v, err := memaccess.ReadInt32(c.acc, addr); err == nil {
			line += fmt.Sprintf("  = %d", v)
		}
		fmt.Println(line)
	}
}

func (c *CLI) handleDump(args []string) {
	if !c.requireSession() {
		return
	}
	if len(args) < 1 {
		fmt.Println("Usage: dump <file>")
		return
	}

	if c.scanBase == 0 || c.scanLen == 0 {
		fmt.Println("No scan region yet; run scan <base> <len> first")
		return
	}

	snap, err := c.engine.TakeSnapshot(c.scanBase, c.scanLen)
	if err != nil {
		fmt.Printf("Snapshot failed: %v\n", err)
		return
	}
	if err := scanner.DumpSnapshot(snap, args[0]); err != nil {
		fmt.Printf("Dump failed: %v\n", err)
		return
	}
	fmt.Printf("Wrote %d bytes to %s\n", snap.Len(), args[0])
}

func (c *CLI) handleFreeze(args []string) {
	if c.registry == nil {
		fmt.Println("Not attached; use attach <pid> first")
		return
	}
	if len(args) < 2 {
		fmt.Println("Usage: freeze <addr-hex> <value>")
		return
	}
	addr, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 64)
	if err != nil {
		fmt.Printf("Invalid address: %v\n", err)
		return
	}
	value, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		fmt.Printf("Invalid value: %v\n", err)
		return
	}

	c.registry.Freeze(uintptr(addr), memaccess.EncodeInt32(int32(value)))
	fmt.Printf("Freezing %d at %#x\n", value, addr)
}

func (c *CLI) handleFrozen() {
	if c.registry == nil {
		fmt.Println("Not attached")
		return
	}
	entries := c.registry.Entries()
	if len(entries) == 0 {
		fmt.Println("Nothing frozen")
		return
	}
	for _, e := range entries {
		state := "active"
		if !e.Active {
			state = "inactive"
		}
		fmt.Printf("  %#x  %v  [%s]\n", e.Address, e.Value, state)
	}
}

func (c *CLI) handleClear() {
	if c.registry == nil {
		fmt.Println("Not attached")
		return
	}
	c.registry.Clear()
	fmt.Println("All freezes cleared")
}

func (c *CLI) handleMods() {
	for _, mod := range c.manager.Mods() {
		state := "disabled"
		if mod.Enabled() {
			state = "enabled"
		}
		fmt.Printf("  %-16s [%s]\n", mod.Name(), c.colorize(state, mod.Enabled()))
	}
}

func (c *CLI) handleEnable(args []string, enabled bool) {
	if len(args) < 1 {
		fmt.Println("Usage: enable|disable <mod name>")
		return
	}
	name := strings.Join(args, " ")
	mod := c.manager.Find(name)
	if mod == nil {
		fmt.Printf("No such mod: %s\n", name)
		return
	}
	mod.SetEnabled(enabled)
	if enabled {
		fmt.Printf("%s enabled\n", mod.Name())
	} else {
		fmt.Printf("%s disabled (freezes cleared)\n", mod.Name())
	}
}

func (c *CLI) handleResolve(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: resolve <mod name> <addr-hex>")
		return
	}
	addrStr := args[len(args)-1]
	name := strings.Join(args[:len(args)-1], " ")

	addr, err := strconv.ParseUint(strings.TrimPrefix(addrStr, "0x"), 16, 64)
	if err != nil {
		fmt.Printf("Invalid address: %v\n", err)
		return
	}

	switch mod := c.manager.Find(name).(type) {
	case *mods.GodMode:
		mod.Resolve(uintptr(addr))
	case *mods.InfiniteAmmo:
		mod.Resolve(uintptr(addr))
	case nil:
		fmt.Printf("No such mod: %s\n", name)
		return
	default:
		fmt.Printf("%s does not take a resolved address\n", name)
		return
	}
	fmt.Printf("%s will freeze through %#x\n", name, addr)
}

func (c *CLI) handleSave() {
	sess := c.supervisor.Current()
	if sess == nil {
		fmt.Println("Not attached")
		return
	}

	profile := config.NewProfile()
	c.manager.Capture(profile)
	for _, mod := range c.manager.Mods() {
		switch m := mod.(type) {
		case *mods.GodMode:
			if m.Address() != 0 {
				profile.Addresses[m.Name()] = uint64(m.Address())
			}
		case *mods.InfiniteAmmo:
			if m.Address() != 0 {
				profile.Addresses[m.Name()] = uint64(m.Address())
			}
		}
	}

	if err := c.store.Save(sess.Name, profile); err != nil {
		fmt.Printf("Save failed: %v\n", err)
		return
	}
	fmt.Printf("Saved profile for %s\n", sess.Name)
}

func (c *CLI) handleLoad() {
	sess := c.supervisor.Current()
	if sess == nil {
		fmt.Println("Not attached")
		return
	}

	profile, err := c.store.Load(sess.Name)
	if err != nil {
		fmt.Printf("Load failed: %v\n", err)
		return
	}
	if profile == nil {
		fmt.Printf("No saved profile for %s\n", sess.Name)
		return
	}

	c.manager.Apply(profile)
	if len(profile.Addresses) > 0 {
		fmt.Println("Saved addresses (verify with exact before trusting):")
		for label, addr := range profile.Addresses {
			fmt.Printf("  %-16s %#x\n", label, addr)
		}
	}
	fmt.Printf("Loaded profile for %s\n", sess.Name)
}

func (c *CLI) handleLog() {
	entries := c.log.Events()
	start := 0
	if len(entries) > 20 {
		start = len(entries) - 20
	}
	for _, e := range entries[start:] {
		tag := e.Severity.String()
		if c.color {
			switch e.Severity {
			case events.Warning:
				tag = "\x1b[33m" + tag + "\x1b[0m"
			case events.Error:
				tag = "\x1b[31m" + tag + "\x1b[0m"
			}
		}
		fmt.Printf("[%s] [%s] %s\n", e.Timestamp.Format("15:04:05"), tag, e.Details)
	}
}

func (c *CLI) colorize(s string, good bool) string {
	if !c.color {
		return s
	}
	if good {
		return "\x1b[32m" + s + "\x1b[0m"
	}
	return s
}

// shutdown stops every background writer before exit.
func (c *CLI) shutdown() {
	c.manager.DetachAll()
	if c.registry != nil {
		c.registry.Clear()
	}
	c.supervisor.Detach()
}
