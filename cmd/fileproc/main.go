package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/opd-ai/fileproc/srv"
	"github.com/opd-ai/fileproc/srv/util"
)

var (
	addr     = flag.String("addr", envOr("FILEPROC_ADDR", ":8080"), "listen address")
	fontDir  = flag.String("fontdir", envOr("FILEPROC_FONT_DIR", "."), "directory searched for DejaVuSans TTF files")
	certFile = flag.String("cert", os.Getenv("FILEPROC_CERT"), "TLS certificate file (serve HTTPS when set)")
	keyFile  = flag.String("key", os.Getenv("FILEPROC_KEY"), "TLS key file")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	flag.Parse()

	cfg := srv.DefaultConfig()
	cfg.Generator.FontDir = *fontDir

	server := srv.NewServer(cfg)

	util.InfoLogger.Printf("File Processor Service %s listening on %s", srv.ServiceVersion, *addr)
	var err error
	if *certFile != "" {
		err = srv.ListenAndServeTLS(*addr, *certFile, *keyFile, server)
	} else {
		err = http.ListenAndServe(*addr, server)
	}
	if err != nil {
		util.ErrorLogger.Printf("server error: %v", err)
		os.Exit(1)
	}
}
