package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"minechain/config"
	"minechain/core/events"
	"minechain/core/state"
	"minechain/core/types"
	"minechain/crypto"
	"minechain/native/mining"
	"minechain/native/nft"
	"minechain/native/token"
	"minechain/observability/logging"
	"minechain/rpc"
	"minechain/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("minechaind", cfg.Env)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)

	collections := nft.NewRegistry()
	collections.SetState(manager)

	tokens := token.NewLedger()
	tokens.SetState(manager)

	if err := seedGenesis(manager, collections, cfg.Genesis, logger); err != nil {
		logger.Error("Failed to seed genesis records", slog.Any("error", err))
		os.Exit(1)
	}

	engine := mining.NewEngine()
	engine.SetState(manager)
	engine.SetCollections(collections)
	engine.SetTokens(tokens)
	engine.SetEmitter(&logEmitter{log: logger})

	go func() {
		if err := serveOps(cfg.OpsAddress, logger); err != nil {
			logger.Error("Ops server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	server := rpc.NewServer(engine, logger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// seedGenesis registers the admin role, reward token and NFT collections from
// the config against a fresh database. Records that already exist are left
// untouched, so restarting against an existing data directory is safe.
func seedGenesis(manager *state.Manager, collections *nft.Registry, genesis config.Genesis, logger *slog.Logger) error {
	if admin := strings.TrimSpace(genesis.AdminAddress); admin != "" {
		addr, err := crypto.DecodeAddress(admin)
		if err != nil {
			return fmt.Errorf("genesis admin: %w", err)
		}
		if !manager.HasRole(mining.RoleAdmin, addr.Bytes()) {
			if err := manager.SetRole(mining.RoleAdmin, addr.Bytes()); err != nil {
				return fmt.Errorf("genesis admin: %w", err)
			}
			logger.Info("granted mining admin role", "address", admin)
		}
	}

	if symbol := strings.TrimSpace(genesis.RewardToken.Symbol); symbol != "" {
		if !manager.TokenExists(symbol) {
			if err := manager.RegisterToken(symbol, genesis.RewardToken.Name, genesis.RewardToken.Decimals); err != nil {
				return fmt.Errorf("genesis reward token: %w", err)
			}
			if authority := strings.TrimSpace(genesis.RewardToken.MintAuthority); authority != "" {
				addr, err := crypto.DecodeAddress(authority)
				if err != nil {
					return fmt.Errorf("genesis reward token authority: %w", err)
				}
				if err := manager.SetTokenMintAuthority(symbol, addr.Bytes()); err != nil {
					return fmt.Errorf("genesis reward token authority: %w", err)
				}
			}
			logger.Info("registered reward token", "symbol", symbol)
		}
	}

	for _, entry := range []config.Collection{genesis.StakeCollection, genesis.BonusCollection} {
		symbol := strings.TrimSpace(entry.Symbol)
		if symbol == "" {
			continue
		}
		if _, ok, err := collections.Collection(symbol); err != nil {
			return fmt.Errorf("genesis collection %s: %w", symbol, err)
		} else if ok {
			continue
		}
		var minter [20]byte
		if trimmed := strings.TrimSpace(entry.Minter); trimmed != "" {
			addr, err := crypto.DecodeAddress(trimmed)
			if err != nil {
				return fmt.Errorf("genesis collection %s minter: %w", symbol, err)
			}
			copy(minter[:], addr.Bytes())
		}
		if err := collections.CreateCollection(symbol, entry.Name, minter); err != nil {
			return fmt.Errorf("genesis collection %s: %w", symbol, err)
		}
		logger.Info("created collection", "symbol", symbol)
	}
	return nil
}

// serveOps exposes the operational endpoints: liveness and prometheus
// metrics. Kept off the RPC listener so operators can firewall them apart.
func serveOps(addr string, logger *slog.Logger) error {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	logger.Info("starting ops server", "addr", addr)
	return http.ListenAndServe(addr, router)
}

// logEmitter writes ledger events to the structured log. A chain deployment
// would hand them to the block event index instead.
type logEmitter struct {
	log *slog.Logger
}

func (l *logEmitter) Emit(event events.Event) {
	if l == nil || l.log == nil || event == nil {
		return
	}
	converter, ok := event.(interface{ Event() *types.Event })
	if !ok {
		l.log.Info("ledger event", "type", event.EventType())
		return
	}
	evt := converter.Event()
	if evt == nil {
		return
	}
	attrs := make([]any, 0, 2*len(evt.Attributes)+2)
	attrs = append(attrs, "type", evt.Type)
	for key, value := range evt.Attributes {
		attrs = append(attrs, key, value)
	}
	l.log.Info("ledger event", attrs...)
}
