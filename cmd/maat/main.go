package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/TecharoHQ/maat"
	"github.com/TecharoHQ/maat/data"
	"github.com/TecharoHQ/maat/internal"
	libmaat "github.com/TecharoHQ/maat/lib"
	"github.com/TecharoHQ/maat/lib/authreq"
	"github.com/TecharoHQ/maat/lib/config"
	"github.com/TecharoHQ/maat/lib/listener"
	"github.com/TecharoHQ/maat/lib/localization"
	"github.com/TecharoHQ/maat/lib/store"
	"github.com/facebookgo/flagenv"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	configFname  = flag.String("config", "maat.yaml", "path to the maat configuration file")
	method       = flag.String("method", http.MethodGet, "HTTP method of the authorization request")
	timeout      = flag.Duration("timeout", 0, "timeout for each attempt, defaults to default_timeout from the config")
	language     = flag.String("language", "", "language for interactive prompts, defaults to the one from LANG")
	metricsBind  = flag.String("metrics-bind", "", "if set, network address to serve Prometheus metrics on while the request runs")
	slogLevel    = flag.String("slog-level", "INFO", "logging level (see https://pkg.go.dev/log/slog#hdr-Levels)")
	slogFormat   = flag.String("slog-format", "text", "log format, text or json")
	socket       = flag.String("socket", "", "if set, unix socket the backend is reached through, overrides the config")
	exampleCfg   = flag.Bool("example-config", false, "print an annotated example configuration file and exit")
	listMethods  = flag.Bool("list-methods", false, "list the available listener and store implementations")
	validateOnly = flag.Bool("validate", false, "validate the configuration file and exit")
	versionFlag  = flag.Bool("version", false, "print Maat version")

	headers = kvFlag{}
	params  = kvFlag{}
)

func init() {
	flag.Var(headers, "header", "extra request header as key=value, may be repeated")
	flag.Var(params, "param", "request parameter as key=value, may be repeated")
}

// kvFlag collects repeated key=value flags.
type kvFlag map[string]string

func (kv kvFlag) String() string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+kv[k])
	}
	return strings.Join(parts, ",")
}

func (kv kvFlag) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok || k == "" {
		return fmt.Errorf("%q is not in key=value form", value)
	}
	kv[k] = v
	return nil
}

func main() {
	flagenv.Parse()
	flag.Parse()

	if *versionFlag {
		fmt.Println("Maat", maat.Version)
		return
	}

	if *exampleCfg {
		os.Stdout.Write(data.ExampleConfig)
		return
	}

	if *listMethods {
		fmt.Println("listeners:", strings.Join(listener.Methods(), ", "))
		fmt.Println("stores:   ", strings.Join(store.Methods(), ", "))
		return
	}

	internal.InitSlog(*slogLevel, *slogFormat)

	cfg, err := config.LoadFile(*configFname)
	if err != nil {
		log.Fatalf("can't load config: %v", err)
	}

	if *validateOnly {
		fmt.Printf("%s is valid\n", *configFname)
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <path>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	if *socket != "" {
		cfg.Socket = *socket
	}

	os.Exit(execute(cfg, flag.Arg(0), os.Stdout, os.Stderr))
}

// notifyContext is swapped in tests.
var notifyContext = signal.NotifyContext

// execute sends one request for path and returns the exit code. Signal
// handling is undone before it returns.
func execute(cfg *config.Config, path string, stdout, stderr io.Writer) int {
	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *metricsBind != "" {
		go metricsServer(ctx)
	}

	lang := *language
	if lang == "" {
		lang = localization.LanguageFromEnv()
	}

	client, err := libmaat.New(ctx, libmaat.Options{
		Config:    cfg,
		In:        os.Stdin,
		Out:       stderr,
		Localizer: localization.NewLocalizationService().GetLocalizer(lang),
	})
	if err != nil {
		fmt.Fprintf(stderr, "can't set up client: %v\n", err)
		return 1
	}

	slog.Debug("sending request", "path", path, "method", *method, "realms", client.Registry().Realms(), "version", maat.Version)

	resp, err := client.Do(ctx, path, &authreq.RequestOptions{
		Method:     *method,
		Timeout:    *timeout,
		Headers:    headers,
		Parameters: params,
	})
	return report(stdout, stderr, resp, err)
}

// report prints the outcome of a request and returns the exit code.
func report(stdout, stderr io.Writer, resp *authreq.Response, err error) int {
	if err != nil {
		var aerr *authreq.Error
		if errors.As(err, &aerr) {
			fmt.Fprintf(stderr, "request failed (%s): %v\n", aerr.Code, aerr.Kind)
			if len(aerr.Info) != 0 {
				fmt.Fprintf(stderr, "details: %s\n", aerr.Info)
			}
			if aerr.Err != nil {
				fmt.Fprintf(stderr, "cause: %v\n", aerr.Err)
			}
			if aerr.Response != nil {
				fmt.Fprintf(stderr, "status: %d\n", aerr.Response.StatusCode)
			}
			return 1
		}

		fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	fmt.Fprintf(stderr, "status: %d\n", resp.StatusCode)
	if loc := resp.FirstHeader("Location"); loc != "" {
		fmt.Fprintf(stderr, "location: %s\n", loc)
	}
	stdout.Write(resp.Body)
	return 0
}

func metricsServer(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := http.Server{Handler: mux, ErrorLog: internal.GetFilteredHTTPLogger()}
	ln, err := net.Listen("tcp", *metricsBind)
	if err != nil {
		slog.Error("can't listen for metrics", "bind", *metricsBind, "err", err)
		return
	}
	slog.Debug("listening for metrics", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(c); err != nil {
			log.Printf("cannot shut down: %v", err)
		}
	}()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server stopped", "err", err)
	}
}
