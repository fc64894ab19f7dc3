//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_block/internal/daemon"
	"github.com/eliteGoblin/focusd/site_block/internal/infra"
	"github.com/eliteGoblin/focusd/site_block/internal/usecase"
)

// localCopyElevator performs the privileged copy without elevation so
// the full mutation path runs against a scratch hosts file.
type localCopyElevator struct{}

func (e *localCopyElevator) RunAsRoot(ctx context.Context, command string) error {
	var src, dst string
	if _, err := fmt.Sscanf(command, "cp %q %q", &src, &dst); err != nil {
		return fmt.Errorf("unexpected privileged command %q: %w", command, err)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

type noopRunner struct{}

func (r *noopRunner) Run(ctx context.Context, name string, args ...string) error {
	return nil
}

func (r *noopRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return nil, nil
}

const originalHosts = "127.0.0.1 localhost\n255.255.255.255 broadcasthost\n"

var _ = Describe("Blocking lifecycle", func() {
	var (
		tmpDir     string
		hostsPath  string
		controller *usecase.Controller
		journal    *infra.EncryptedJournal
		ctx        context.Context
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "siteblock-integration-*")
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()

		hostsPath = filepath.Join(tmpDir, "hosts")
		err = os.WriteFile(hostsPath, []byte(originalHosts), 0644)
		Expect(err).NotTo(HaveOccurred())

		logger := zap.NewNop()
		mutator := infra.NewHostsMutatorWithDeps(
			hostsPath,
			filepath.Join(tmpDir, "hosts.backup"),
			tmpDir,
			infra.DefaultMarker,
			&localCopyElevator{},
			&noopRunner{},
			logger,
		)

		store, err := infra.NewFileStore(tmpDir, logger)
		Expect(err).NotTo(HaveOccurred())

		journal, err = infra.OpenJournal(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		controller = usecase.NewController(
			mutator, store, store, journal, nil, logger)
	})

	AfterEach(func() {
		controller.Close()
		journal.Close()
		os.RemoveAll(tmpDir)
	})

	Describe("hosts file round trip", func() {
		It("appends tagged entries on activation", func() {
			Expect(controller.Activate(ctx)).To(Succeed())

			content, err := os.ReadFile(hostsPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(ContainSubstring("127.0.0.1 localhost"))
			Expect(string(content)).To(ContainSubstring(
				"127.0.0.1 facebook.com " + infra.DefaultMarker))
		})

		It("restores the original file byte for byte on deactivation", func() {
			Expect(controller.Activate(ctx)).To(Succeed())
			Expect(controller.Deactivate(ctx)).To(Succeed())

			content, err := os.ReadFile(hostsPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal(originalHosts))
		})

		It("survives repeated activation without duplicating entries", func() {
			Expect(controller.Activate(ctx)).To(Succeed())
			Expect(controller.AddSite(ctx, "news.example.com")).To(Succeed())
			Expect(controller.AddSite(ctx, "forum.example.com")).To(Succeed())

			content, err := os.ReadFile(hostsPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(string(content), "facebook.com "+infra.DefaultMarker)).To(Equal(1))
			Expect(string(content)).To(ContainSubstring("news.example.com"))
			Expect(string(content)).To(ContainSubstring("forum.example.com"))
		})
	})

	Describe("session journal", func() {
		It("records a completed session and keeps it across reopen", func() {
			Expect(controller.Activate(ctx)).To(Succeed())
			Expect(controller.Deactivate(ctx)).To(Succeed())

			records, err := journal.All()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))

			// Reopen with the same key and the record is still there.
			Expect(journal.Close()).To(Succeed())
			key, err := infra.NewFileKeyProvider(tmpDir).GetKey()
			Expect(err).NotTo(HaveOccurred())
			journal, err = infra.NewEncryptedJournal(tmpDir, key)
			Expect(err).NotTo(HaveOccurred())

			records, err = journal.All()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
		})
	})

	Describe("control socket", func() {
		var (
			client     *daemon.Client
			cancelSrv  context.CancelFunc
			socketPath string
		)

		BeforeEach(func() {
			socketPath = filepath.Join(tmpDir, daemon.SocketName)
			srv := daemon.NewControlServer(controller, socketPath, zap.NewNop())

			var srvCtx context.Context
			srvCtx, cancelSrv = context.WithCancel(context.Background())
			go func() {
				defer GinkgoRecover()
				_ = srv.Serve(srvCtx)
			}()
			Eventually(func() error {
				_, err := os.Stat(socketPath)
				return err
			}).Should(Succeed())

			client = daemon.NewClient(socketPath)
		})

		AfterEach(func() {
			cancelSrv()
		})

		It("toggles blocking end to end", func() {
			data, err := client.Call(daemon.OpToggle, nil)
			Expect(err).NotTo(HaveOccurred())
			var result daemon.ToggleResult
			Expect(json.Unmarshal(data, &result)).To(Succeed())
			Expect(result.Active).To(BeTrue())

			content, err := os.ReadFile(hostsPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(ContainSubstring(infra.DefaultMarker))

			// Toggling again arms the cool-down instead of lifting the block.
			data, err = client.Call(daemon.OpToggle, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(data, &result)).To(Succeed())
			Expect(result.DeactivationIn).To(BeNumerically(">", 0))

			status, err := client.Call(daemon.OpStatus, nil)
			Expect(err).NotTo(HaveOccurred())
			var st usecase.Status
			Expect(json.Unmarshal(status, &st)).To(Succeed())
			Expect(st.Active).To(BeTrue())
			Expect(st.DeactivationPending).To(BeTrue())

			_, err = client.Call(daemon.OpCancelTimer, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("edits the block list while active", func() {
			_, err := client.Call(daemon.OpToggle, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Call(daemon.OpAddSite,
				map[string]string{"site": "example.org"})
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() string {
				content, _ := os.ReadFile(hostsPath)
				return string(content)
			}, time.Second).Should(ContainSubstring("example.org"))
		})
	})
})
