// Command targetserver is a local HTTP target for exercising conn by hand.
//
//	/bytes/{n}     responds with n bytes
//	/status/{code} responds with the given status
//	/delay/{ms}    waits before responding
//	/urls          lists the other endpoints, one per line, for use with conn -f
package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const maxBodyBytes = 64 << 20

func main() {
	addr := pflag.String("addr", "127.0.0.1:8080", "listen address")
	pflag.Parse()

	log := logrus.New()
	log.WithField("addr", *addr).Info("target server listening")
	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux("http://" + *addr),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.WithError(err).Error("target server stopped")
		os.Exit(1)
	}
}

func newMux(base string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/bytes/", handleBytes)
	mux.HandleFunc("/status/", handleStatus)
	mux.HandleFunc("/delay/", handleDelay)
	mux.HandleFunc("/urls", func(w http.ResponseWriter, r *http.Request) {
		for _, path := range []string{"/bytes/1024", "/bytes/65536", "/delay/50", "/status/404"} {
			fmt.Fprintln(w, base+path)
		}
	})
	return mux
}

func pathInt(r *http.Request, prefix string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, prefix))
	return n, err == nil && n >= 0
}

func handleBytes(w http.ResponseWriter, r *http.Request) {
	n, ok := pathInt(r, "/bytes/")
	if !ok || n > maxBodyBytes {
		http.Error(w, "bad size", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(n))
	chunk := []byte(strings.Repeat("x", 4096))
	for n > 0 {
		k := n
		if k > len(chunk) {
			k = len(chunk)
		}
		if _, err := w.Write(chunk[:k]); err != nil {
			return
		}
		n -= k
	}
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	code, ok := pathInt(r, "/status/")
	if !ok || code < 100 || code > 599 {
		http.Error(w, "bad status", http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
}

func handleDelay(w http.ResponseWriter, r *http.Request) {
	ms, ok := pathInt(r, "/delay/")
	if !ok {
		http.Error(w, "bad delay", http.StatusBadRequest)
		return
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		fmt.Fprintln(w, "ok")
	case <-r.Context().Done():
	}
}
