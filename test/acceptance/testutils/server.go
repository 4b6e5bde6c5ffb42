package testutils

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"time"

	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega/gexec"
	sharedutils "github.com/technopolitica/fleet-live/test/testutils"
)

type APIServer struct {
	BaseURL    *url.URL
	PrivateKey *rsa.PrivateKey
	session    *gexec.Session
	keyFile    string
}

func findOpenPort() (addr *net.TCPAddr, err error) {
	addr, err = net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return
	}
	defer listener.Close()
	addr = listener.Addr().(*net.TCPAddr)
	return
}

func (server APIServer) waitToAcceptConnections(ctx context.Context) (err error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err = server.pingHealthEndpoint()
			if err == nil {
				return
			}
		case <-server.session.Exited:
			return fmt.Errorf("server exited with code %d", server.session.ExitCode())
		case <-ctx.Done():
			return fmt.Errorf("cancelled (%s), last error: %w", context.Cause(ctx), err)
		}
	}
}

func (server APIServer) pingHealthEndpoint() (err error) {
	healthEndpoint := server.BaseURL.JoinPath("health")
	res, err := http.Get(healthEndpoint.String())
	if err != nil {
		return
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		err = fmt.Errorf("got unexpected http status code in response: %s", res.Status)
	}
	return
}

func StartAPIServer(ctx context.Context, serverBinaryPath string, dbConnectionString string) (server APIServer, err error) {
	privateKey := sharedutils.GenerateKey()
	publicKeyFilePath, err := sharedutils.WritePublicKeyFile(&privateKey.PublicKey)
	if err != nil {
		err = fmt.Errorf("failed to write public key file: %w", err)
		return
	}

	addr, err := findOpenPort()
	if err != nil {
		err = fmt.Errorf("failed to find open port: %w", err)
		return
	}
	serverCmd := exec.Command(
		serverBinaryPath,
		"--http.addr", addr.String(),
		"--db.url", dbConnectionString,
		"--auth.public-key", fmt.Sprintf("file://%s", publicKeyFilePath),
		"--gateway.pong-timeout", "5s",
		"--log.level", "debug",
	)
	session, err := gexec.Start(serverCmd, GinkgoWriter, GinkgoWriter)
	if err != nil {
		err = fmt.Errorf("failed to start server: %w", err)
		return
	}
	baseURL, err := url.Parse(fmt.Sprintf("http://%s", addr.String()))
	if err != nil {
		err = fmt.Errorf("failed to parse base URL: %w", err)
		return
	}
	server = APIServer{
		PrivateKey: privateKey,
		BaseURL:    baseURL,
		session:    session,
		keyFile:    publicKeyFilePath,
	}
	err = server.waitToAcceptConnections(ctx)
	return
}

func (server APIServer) Terminate() {
	server.session.Terminate().Wait(10 * time.Second)
	os.Remove(server.keyFile)
}
