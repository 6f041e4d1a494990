package main

import (
	"context"
	"fmt"
	"net"

	"github.com/Veraticus/kwisatz/internal/certs"
	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/config"
	"github.com/Veraticus/kwisatz/internal/engine"
	"github.com/Veraticus/kwisatz/internal/server"
	"github.com/Veraticus/kwisatz/internal/watch"
	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve predictions, batch classification, taxonomy uploads, corrections
and evaluation over HTTP. Taxonomy and corpus files are watched and reloaded
when they change; a failed reload keeps the previous data active.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			settings, err := loadSettings()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			sink := correctionSink(store, settings)
			defer func() { _ = sink.Close() }()

			tax, c, err := loadInputs(settings)
			if err != nil {
				return err
			}
			e, err := engine.New(tax, c, settings, engine.WithCorrectionSink(sink))
			if err != nil {
				return fmt.Errorf("failed to build engine: %w", err)
			}

			if viper.GetString("logging.level") != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			opts := []server.Option{server.WithVersion(version)}
			if settings.Server.TLS {
				tlsOpt, tlsErr := tlsOption(settings.Server)
				if tlsErr != nil {
					return tlsErr
				}
				opts = append(opts, tlsOpt)
			}
			srv := server.New(e, opts...)

			p := pool.New().WithContext(ctx).WithCancelOnError()
			p.Go(func(ctx context.Context) error {
				return srv.Run(ctx, settings.Server.Address)
			})
			if !noWatch {
				paths := append([]string{settings.TaxonomyPath}, settings.CorpusPaths...)
				w := watch.New(reloadFunc(e), paths)
				if w.Files() > 0 {
					p.Go(w.Run)
				}
			}

			stats := e.Stats()
			common.LogInfo("serving", common.Fields{
				"address":    settings.Server.Address,
				"tls":        settings.Server.TLS,
				"examples":   stats.Examples,
				"categories": stats.Categories,
				"vocabulary": stats.Vocabulary,
			})
			return p.Wait()
		},
	}

	cmd.Flags().String("addr", "", "listen address (default from server.address)")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload when taxonomy or corpus files change")
	_ = viper.BindPFlag(config.KeyServerAddress, cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag(config.KeyServerTLS, cmd.Flags().Lookup("tls"))

	return cmd
}

// reloadFunc rereads the taxonomy and corpus with the engine's current
// settings and swaps them in. The files are read inside the update so a
// concurrent taxonomy upload is never overwritten by an older read.
func reloadFunc(e *engine.Engine) watch.ReloadFunc {
	return func(context.Context) error {
		return e.Update(func(cur engine.Inputs) (engine.Inputs, error) {
			tax, c, err := loadInputs(cur.Settings)
			if err != nil {
				return cur, err
			}
			return engine.Inputs{Taxonomy: tax, Corpus: c, Settings: cur.Settings}, nil
		})
	}
}

// tlsOption loads or creates the self-signed certificate for the listen host.
func tlsOption(cfg config.ServerSettings) (server.Option, error) {
	host, _, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("invalid listen address %q", cfg.Address), err)
	}
	store := certs.NewStore(cfg.CertDir)
	cert, err := store.GetOrCreate(host)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare TLS certificate: %w", err)
	}
	certFile, _ := store.Paths()
	common.LogDebug("using TLS certificate", common.Fields{"path": certFile})
	return server.WithTLS(cert), nil
}
