/*
Package config loads the declarative YAML configuration document (pools, scansets, masks, irc
networks) and builds the engine/presence values cmd/trustydns-opm wires together. There is no
plugin-discovery step here - scanset protocol entries are resolved directly against
internal/probe.Factories, exactly as spec'd in internal/probe/registry.go's doc comment.
*/
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/markdingo/trustydns-opm/internal/constants"
	"github.com/markdingo/trustydns-opm/internal/ircpresence"
	"github.com/markdingo/trustydns-opm/internal/probe"
	"github.com/markdingo/trustydns-opm/internal/scanengine"
)

type document struct {
	Pools    map[string]int            `yaml:"pools"`
	Scansets map[string]scansetDoc     `yaml:"scansets"`
	Masks    map[string][]string       `yaml:"masks"`
	IRC      map[string]ircDoc         `yaml:"irc"`

	TargetIP      string   `yaml:"target_ip"`
	TargetPort    int      `yaml:"target_port"`
	TargetURL     string   `yaml:"target_url"`
	TargetStrings []string `yaml:"target_strings"`
	MaxBytes      int      `yaml:"max_bytes"`
	BindAddress   string   `yaml:"bind_address"`

	UserReason string `yaml:"user-reason"`
	OperReason string `yaml:"oper-reason"`
}

type scansetDoc struct {
	Timeout    int             `yaml:"timeout"`
	Protocols  [][]interface{} `yaml:"protocols"`
	Actions    []string        `yaml:"actions"`
	UserReason string          `yaml:"user-reason"`
	OperReason string          `yaml:"oper-reason"`
}

type onConnectMsgDoc struct {
	Target  string `yaml:"target"`
	Message string `yaml:"message"`
}

type ircDoc struct {
	Host              string             `yaml:"host"`
	Port              int                `yaml:"port"`
	SSL               bool               `yaml:"ssl"`
	Nick              string             `yaml:"nick"`
	Channel           string             `yaml:"channel"`
	Pass              string             `yaml:"pass"`
	OperName          string             `yaml:"opername"`
	OperPass          string             `yaml:"operpass"`
	OperKey           string             `yaml:"operkey"`
	OperMode          string             `yaml:"opermode"`
	Away              string             `yaml:"away"`
	ConnRegex         string             `yaml:"connregex"`
	OnConnectMsgs     []onConnectMsgDoc  `yaml:"onconnectmsgs"`
	Verbose           bool               `yaml:"verbose"`
	FloodExempt       bool               `yaml:"flood_exempt"`
	Username          string             `yaml:"username"`
	ScanCacheTime     string             `yaml:"scan-cache-time"`
	ScanCacheSize     int                `yaml:"scan-cache-size"`
	ImmunityCacheSize int                `yaml:"immune-cache-size"`
}

// Built is everything a running daemon needs, assembled from one configuration document.
type Built struct {
	Pools       map[string]*scanengine.Pool
	ScanSets    map[string]*scanengine.ScanSet
	Environment *scanengine.Environment
	Presences   []*ircpresence.Config

	PoolSizes map[string]int // Preserved for the boot-time FD check (sum of these vs rlimit)
}

// Load reads and parses path, then builds pools/scansets/presences from it.
func Load(path string) (*Built, error) {
	me := "config:Load"

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", me, err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s:parse %s:%w", me, path, err)
	}

	return build(&doc)
}

func build(doc *document) (*Built, error) {
	me := "config:build"

	pools := make(map[string]*scanengine.Pool, len(doc.Pools))
	for name, size := range doc.Pools {
		pools[name] = scanengine.NewPool(name, size)
	}

	env := &scanengine.Environment{
		BindAddress:   doc.BindAddress,
		TargetIP:      doc.TargetIP,
		TargetPort:    doc.TargetPort,
		TargetURL:     doc.TargetURL,
		TargetStrings: doc.TargetStrings,
		MaxBytes:      doc.MaxBytes,
	}

	scanSets := make(map[string]*scanengine.ScanSet, len(doc.Scansets))
	for name, sd := range doc.Scansets {
		set, err := buildScanSet(name, sd, doc, pools)
		if err != nil {
			return nil, fmt.Errorf("%s:scanset %q:%w", me, name, err)
		}
		scanSets[name] = set
	}

	presences := make([]*ircpresence.Config, 0, len(doc.IRC))
	for name, id := range doc.IRC {
		cfg, err := buildIRCConfig(id, doc.Masks)
		if err != nil {
			return nil, fmt.Errorf("%s:irc %q:%w", me, name, err)
		}
		presences = append(presences, cfg)
	}

	return &Built{
		Pools:       pools,
		ScanSets:    scanSets,
		Environment: env,
		Presences:   presences,
		PoolSizes:   doc.Pools,
	}, nil
}

func buildScanSet(name string, sd scansetDoc, doc *document, pools map[string]*scanengine.Pool) (*scanengine.ScanSet, error) {
	if sd.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %d", sd.Timeout)
	}

	attachments := make([]scanengine.Attachment, 0, len(sd.Protocols))
	for _, protocol := range sd.Protocols {
		if len(protocol) < 2 {
			return nil, fmt.Errorf("protocol entry needs at least [pool, probename], got %v", protocol)
		}
		poolName, ok := protocol[0].(string)
		if !ok {
			return nil, fmt.Errorf("protocol entry's pool name must be a string, got %T", protocol[0])
		}
		probeName, ok := protocol[1].(string)
		if !ok {
			return nil, fmt.Errorf("protocol entry's probe name must be a string, got %T", protocol[1])
		}
		if _, ok := pools[poolName]; !ok {
			return nil, fmt.Errorf("protocol entry references unknown pool %q", poolName)
		}
		factory, ok := probe.Factories[probeName]
		if !ok {
			return nil, fmt.Errorf("protocol entry references unknown probe %q", probeName)
		}
		p, err := factory(protocol[2:])
		if err != nil {
			return nil, fmt.Errorf("probe %q:%w", probeName, err)
		}
		attachments = append(attachments, scanengine.Attachment{PoolName: poolName, Probe: p})
	}

	userReason := sd.UserReason
	if userReason == "" {
		userReason = doc.UserReason
	}
	operReason := sd.OperReason
	if operReason == "" {
		operReason = doc.OperReason
	}

	return &scanengine.ScanSet{
		Name:       name,
		Timeout:    time.Duration(sd.Timeout) * time.Second,
		Probes:     attachments,
		Actions:    sd.Actions,
		UserReason: userReason,
		OperReason: operReason,
	}, nil
}

func buildIRCConfig(id ircDoc, masks map[string][]string) (*ircpresence.Config, error) {
	consts := constants.Get()

	var connRegex *regexp.Regexp
	if id.ConnRegex != "" {
		re, err := regexp.Compile(id.ConnRegex)
		if err != nil {
			return nil, fmt.Errorf("connregex:%w", err)
		}
		connRegex = re
	}

	verdictTTL, err := time.ParseDuration(defaultString(id.ScanCacheTime, consts.DefaultVerdictCacheTTL))
	if err != nil {
		return nil, fmt.Errorf("scan-cache-time:%w", err)
	}

	verdictSize := id.ScanCacheSize
	if verdictSize == 0 {
		verdictSize = consts.DefaultVerdictCacheSize
	}
	immuneSize := id.ImmunityCacheSize
	if immuneSize == 0 {
		immuneSize = consts.DefaultImmunityCacheSize
	}

	onConnect := make([]ircpresence.OnConnectMsg, 0, len(id.OnConnectMsgs))
	for _, m := range id.OnConnectMsgs {
		onConnect = append(onConnect, ircpresence.OnConnectMsg{Target: m.Target, Message: m.Message})
	}

	return &ircpresence.Config{
		Host:              id.Host,
		Port:              fmt.Sprintf("%d", id.Port),
		SSL:               id.SSL,
		Nick:              id.Nick,
		Username:          id.Username,
		Channel:           id.Channel,
		Password:          id.Pass,
		OperName:          id.OperName,
		OperPass:          id.OperPass,
		OperKey:           id.OperKey,
		OperMode:          id.OperMode,
		Away:              id.Away,
		ConnRegex:         connRegex,
		Masks:             masks,
		OnConnectMsgs:     onConnect,
		Verbose:           id.Verbose,
		FloodExempt:       id.FloodExempt,
		VerdictCacheTTL:   verdictTTL,
		VerdictCacheSize:  verdictSize,
		ImmunityCacheSize: immuneSize,
		MessagePenalty:    time.Duration(consts.DefaultMessagePenaltySecs) * time.Second,
		MessageBurst:      time.Duration(consts.DefaultMessageBurstSecs) * time.Second,
	}, nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// TotalPoolSize sums every pool's token count, used by the boot-time FD soft-limit check (the
// total soft FD limit must be >= the sum of pool sizes).
func TotalPoolSize(poolSizes map[string]int) int {
	total := 0
	for _, n := range poolSizes {
		total += n
	}
	return total
}
