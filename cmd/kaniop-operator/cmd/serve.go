package cmd

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"k8s.io/client-go/kubernetes"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	"sigs.k8s.io/controller-runtime/pkg/webhook"

	"github.com/kaniop/kaniop/api/v1alpha1"
	"github.com/kaniop/kaniop/internal/clientpool"
	"github.com/kaniop/kaniop/internal/controller/group"
	"github.com/kaniop/kaniop/internal/controller/kanidm"
	"github.com/kaniop/kaniop/internal/controller/oauth2client"
	"github.com/kaniop/kaniop/internal/controller/person"
	"github.com/kaniop/kaniop/internal/controller/serviceaccount"
	"github.com/kaniop/kaniop/internal/events"
	"github.com/kaniop/kaniop/internal/metrics"
	"github.com/kaniop/kaniop/internal/scheme"
)

func newServeCmd() *cobra.Command {
	var (
		metricsAddr    string
		probeAddr      string
		leaderElect    bool
		enableWebhooks bool
		webhookPort    int
		webhookCertDir string
		logDev         bool
		logLevel       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the kaniop manager",
		RunE: func(c *cobra.Command, args []string) error {
			return runServer(c.Context(), serveOptions{
				metricsAddr:    metricsAddr,
				probeAddr:      probeAddr,
				leaderElect:    leaderElect,
				enableWebhooks: enableWebhooks,
				webhookPort:    webhookPort,
				webhookCertDir: webhookCertDir,
				logDev:         logDev,
				logLevel:       logLevel,
			})
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	cmd.Flags().StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	cmd.Flags().BoolVar(&leaderElect, "leader-elect", true, "Enable leader election so only one operator replica reconciles at a time.")
	cmd.Flags().BoolVar(&enableWebhooks, "enable-webhooks", true, "Register the validating webhooks for the Kanidm CRDs.")
	cmd.Flags().IntVar(&webhookPort, "webhook-port", 9443, "Port for the validating webhook server.")
	cmd.Flags().StringVar(&webhookCertDir, "webhook-cert-dir", "/tmp/k8s-webhook-server/serving-certs", "Directory with the TLS cert/key for the webhook server.")
	cmd.Flags().BoolVar(&logDev, "log-dev", false, "Enable development logging (human-friendly).")
	cmd.Flags().IntVar(&logLevel, "log-level", 0, "Log verbosity level (0=info only, 1=verbose, 2=debug).")

	return cmd
}

type serveOptions struct {
	metricsAddr    string
	probeAddr      string
	leaderElect    bool
	enableWebhooks bool
	webhookPort    int
	webhookCertDir string
	logDev         bool
	logLevel       int
}

func runServer(ctx context.Context, opts serveOptions) error {
	logger := zap.New(zap.UseDevMode(opts.logDev), zap.Level(zapcore.Level(-1*opts.logLevel)))
	ctrl.SetLogger(logger)

	restConfig := ctrl.GetConfigOrDie()

	mgrOpts := ctrl.Options{
		Scheme:                 scheme.New(),
		Metrics:                metricsserver.Options{BindAddress: opts.metricsAddr},
		HealthProbeBindAddress: opts.probeAddr,
		LeaderElection:         opts.leaderElect,
		LeaderElectionID:       "kaniop-operator-lock.kaniop.rs",
	}
	if opts.enableWebhooks {
		mgrOpts.WebhookServer = webhook.NewServer(webhook.Options{
			Port:    opts.webhookPort,
			CertDir: opts.webhookCertDir,
			TLSOpts: []func(*tls.Config){
				func(cfg *tls.Config) {
					cfg.MinVersion = tls.VersionTLS12
				},
			},
		})
	}

	mgr, err := ctrl.NewManager(restConfig, mgrOpts)
	if err != nil {
		return fmt.Errorf("unable to start manager: %w", err)
	}

	metrics.Register()

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("unable to build kubernetes clientset: %w", err)
	}

	pool := clientpool.New(clientpool.NewKanidmCredentialSource(mgr.GetClient()))

	kanidmReconciler := &kanidm.Reconciler{
		Client:     mgr.GetClient(),
		Recorder:   events.NewRecorder(mgr.GetEventRecorderFor("kanidm-controller")),
		RestConfig: restConfig,
		Clientset:  clientset,
	}
	if err := kanidmReconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to set up kanidm controller: %w", err)
	}

	personReconciler := &person.Reconciler{
		Client:   mgr.GetClient(),
		Pool:     pool,
		Recorder: events.NewRecorder(mgr.GetEventRecorderFor("person-controller")),
	}
	if err := personReconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to set up person controller: %w", err)
	}

	serviceAccountReconciler := &serviceaccount.Reconciler{
		Client:   mgr.GetClient(),
		Pool:     pool,
		Recorder: events.NewRecorder(mgr.GetEventRecorderFor("serviceaccount-controller")),
	}
	if err := serviceAccountReconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to set up service account controller: %w", err)
	}

	groupReconciler := &group.Reconciler{
		Client:   mgr.GetClient(),
		Pool:     pool,
		Recorder: events.NewRecorder(mgr.GetEventRecorderFor("group-controller")),
	}
	if err := groupReconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to set up group controller: %w", err)
	}

	oauth2ClientReconciler := &oauth2client.Reconciler{
		Client:   mgr.GetClient(),
		Pool:     pool,
		Recorder: events.NewRecorder(mgr.GetEventRecorderFor("oauth2client-controller")),
	}
	if err := oauth2ClientReconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to set up oauth2 client controller: %w", err)
	}

	if opts.enableWebhooks {
		for _, setup := range []func(ctrl.Manager) error{
			(&v1alpha1.Kanidm{}).SetupWebhookWithManager,
			(&v1alpha1.KanidmPersonAccount{}).SetupWebhookWithManager,
			(&v1alpha1.KanidmServiceAccount{}).SetupWebhookWithManager,
			(&v1alpha1.KanidmGroup{}).SetupWebhookWithManager,
			(&v1alpha1.KanidmOAuth2Client{}).SetupWebhookWithManager,
		} {
			if err := setup(mgr); err != nil {
				return fmt.Errorf("unable to set up webhook: %w", err)
			}
		}
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up ready check: %w", err)
	}

	logger.Info("starting manager")
	return mgr.Start(ctx)
}
