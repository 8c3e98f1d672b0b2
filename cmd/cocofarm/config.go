package main

import (
	"runtime"
	"sort"

	"github.com/imagvfx/cocowait/manager"
	"github.com/imagvfx/cocowait/remote"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// farmConfig is the farm configuration from a toml file.
//
//	[worker.<group>]
//	Slots = 4
//	ServeTargets = ["*"]
//
//	[access]
//	IPs = ["10.0.[0-3].*"]
//	Domains = ["*.imagvfx.com"]
type farmConfig struct {
	// Groups are in the order they are defined in the file.
	Groups []*manager.WorkerGroup
	Access *remote.AccessList
}

// defaultFarmConfig is used when there is no config file.
func defaultFarmConfig() *farmConfig {
	return &farmConfig{
		Groups: manager.DefaultConfig(runtime.NumCPU()).Groups,
		Access: &remote.AccessList{},
	}
}

// Match go-toml.Tree keys to the same order with the file.
// Would be great it can be done with go-toml package, but didn't find the way.
// Keys of non-table values are left out.
func orderedKeys(t *toml.Tree) []string {
	type keyPos struct {
		Key string
		Pos toml.Position
	}
	poses := make([]keyPos, 0)
	for _, k := range t.Keys() {
		subt, ok := t.Get(k).(*toml.Tree)
		if !ok {
			continue
		}
		poses = append(poses, keyPos{Key: k, Pos: subt.Position()})
	}
	sort.Slice(poses, func(i, j int) bool {
		if poses[i].Pos.Line != poses[j].Pos.Line {
			return poses[i].Pos.Line < poses[j].Pos.Line
		}
		return poses[i].Pos.Col < poses[j].Pos.Col
	})
	keys := make([]string, len(poses))
	for i, p := range poses {
		keys[i] = p.Key
	}
	return keys
}

func loadConfig(path string) (*farmConfig, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg, err := parseConfig(tree)
	if err != nil {
		return nil, errors.Wrapf(err, "config %v", path)
	}
	return cfg, nil
}

func parseConfig(tree *toml.Tree) (*farmConfig, error) {
	type groupConfig struct {
		Slots        int      `toml:"Slots"`
		ServeTargets []string `toml:"ServeTargets"`
	}
	type accessConfig struct {
		IPs     []string `toml:"IPs"`
		Domains []string `toml:"Domains"`
	}
	type fileConfig struct {
		Worker map[string]*groupConfig `toml:"worker"`
		Access accessConfig            `toml:"access"`
	}
	fc := fileConfig{}
	err := tree.Unmarshal(&fc)
	if err != nil {
		return nil, err
	}
	wt, ok := tree.Get("worker").(*toml.Tree)
	if !ok {
		return nil, errors.New("no worker group defined: need [worker.<group>] tables")
	}
	cfg := &farmConfig{}
	for _, name := range orderedKeys(wt) {
		g := fc.Worker[name]
		if g == nil {
			continue
		}
		cfg.Groups = append(cfg.Groups, &manager.WorkerGroup{
			Name:         name,
			Slots:        g.Slots,
			ServeTargets: g.ServeTargets,
		})
	}
	err = manager.Config{Groups: cfg.Groups}.Validate()
	if err != nil {
		return nil, err
	}
	cfg.Access, err = remote.NewAccessList(fc.Access.IPs, fc.Access.Domains)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
