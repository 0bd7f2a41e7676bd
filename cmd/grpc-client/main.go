package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"storefront/internal/config"
	grpcHandler "storefront/internal/handler/grpc"
	"storefront/internal/logger"
	middleware_grpc "storefront/internal/middleware/grpc"
	"storefront/internal/version"
)

const usage = `usage: grpc-client [--target host:port] <command> [flags]

commands:
  list                                       print every product, newest first
  insert --name N --price P [--image-url U]  add an available product
  delete --id ID                             remove a product

insert and delete read the admin secret from ADMIN_SECRET.
`

func main() {
	globalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Instance()
	cfg := config.LoadClient()
	logger.ConfigureRemote(cfg.RemoteLogHttpURI, cfg.AppName)

	if err := run(globalCtx, cfg, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ClientConfig, args []string, out io.Writer) error {
	global := pflag.NewFlagSet("grpc-client", pflag.ContinueOnError)
	global.SetInterspersed(false)
	target := global.String("target", cfg.CatalogGRPC, "catalog gRPC address")
	timeout := global.Duration("timeout", 5*time.Second, "per call timeout")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return fmt.Errorf("missing command")
	}

	logger.Info(ctx, cfg.AppName,
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("target", *target),
	)

	conn, err := grpc.NewClient(*target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(middleware_grpc.UnaryClientTracingInterceptor()),
	)
	if err != nil {
		return fmt.Errorf("connect %s: %w", *target, err)
	}
	defer func() { _ = conn.Close() }()

	client := grpcHandler.NewCatalogClient(conn)

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	ctx, span := otel.Tracer("CatalogCLI").Start(ctx, "CatalogCLI."+global.Arg(0))
	defer span.End()

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "list":
		return list(ctx, client, out)
	case "insert":
		return insert(withAdmin(ctx, cfg), client, cmdArgs, out)
	case "delete":
		return remove(withAdmin(ctx, cfg), client, cmdArgs, out)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func withAdmin(ctx context.Context, cfg config.ClientConfig) context.Context {
	return metadata.AppendToOutgoingContext(ctx, grpcHandler.AdminSecretHeader, cfg.AdminSecret)
}

func list(ctx context.Context, client *grpcHandler.CatalogClient, out io.Writer) error {
	var trailer metadata.MD
	products, err := client.List(ctx, grpc.Trailer(&trailer))
	if err != nil {
		logger.Error(ctx, "List failed", slog.String("error", err.Error()), slog.String("trace_id", traceID(trailer)))
		return err
	}
	logger.Info(ctx, "Received products", slog.Int("count", len(products.GetValues())), slog.String("trace_id", traceID(trailer)))
	return printJSON(out, products)
}

func insert(ctx context.Context, client *grpcHandler.CatalogClient, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("insert", pflag.ContinueOnError)
	name := fs.String("name", "", "product name")
	price := fs.String("price", "", "whole-number price")
	imageURL := fs.String("image-url", "", "absolute http(s) image URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := structpb.NewStruct(map[string]any{
		"name":      *name,
		"price":     *price,
		"image_url": *imageURL,
	})
	if err != nil {
		return err
	}

	var trailer metadata.MD
	created, err := client.Insert(ctx, req, grpc.Trailer(&trailer))
	if err != nil {
		logger.Error(ctx, "Insert failed", slog.String("error", err.Error()), slog.String("trace_id", traceID(trailer)))
		return err
	}
	return printJSON(out, created)
}

func remove(ctx context.Context, client *grpcHandler.CatalogClient, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("delete", pflag.ContinueOnError)
	id := fs.String("id", "", "product id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}

	var trailer metadata.MD
	if err := client.Delete(ctx, *id, grpc.Trailer(&trailer)); err != nil {
		logger.Error(ctx, "Delete failed", slog.String("error", err.Error()), slog.String("trace_id", traceID(trailer)))
		return err
	}
	_, err := fmt.Fprintf(out, "deleted %s\n", *id)
	return err
}

func traceID(trailer metadata.MD) string {
	if ids := trailer.Get("x-trace-id"); len(ids) > 0 {
		return ids[0]
	}
	return "empty"
}

func printJSON(out io.Writer, m proto.Message) error {
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(m)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
