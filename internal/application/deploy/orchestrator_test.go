package deploy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
	"github.com/alexisbeaulieu97/deployline/internal/ports"
	apperrors "github.com/alexisbeaulieu97/deployline/pkg/errors"
)

type stubUI struct {
	mu    sync.Mutex
	lines []string
}

func (u *stubUI) WriteLine(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lines = append(u.lines, msg)
}

func (u *stubUI) WriteError(err error) { u.WriteLine(err.Error()) }

type stubView struct {
	env    string
	values map[string]any
}

func (v stubView) Get(key string) (any, bool) {
	value, ok := v.values[key]
	return value, ok
}

func (v stubView) String(key string) string {
	s, _ := v.values[key].(string)
	return s
}

func (v stubView) Environment() string { return v.env }

type stubEvents struct {
	mu       sync.Mutex
	types    []string
	payloads []map[string]interface{}
}

func (s *stubEvents) Publish(_ context.Context, event ports.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = append(s.types, event.EventType())
	payload, _ := event.Payload().(map[string]interface{})
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *stubEvents) Subscribe(string, ports.EventHandler) (ports.Subscription, error) {
	return nil, nil
}

func baseOptions(addons ...deploy.Contributor) Options {
	return Options{
		Project:      &deploy.Project{Name: "mock-project", Addons: addons},
		UI:           &stubUI{},
		DeployConfig: stubView{env: "development"},
		AppConfig:    stubView{env: "development"},
	}
}

func pluginAddon(name string, keywords []string, factory deploy.PluginFactory) *deploy.Addon {
	return &deploy.Addon{PackageName: name, PackageKeywords: keywords, Factory: factory}
}

var deployKeywords = []string{deploy.DefaultCapabilityKeyword}

func noopHook(context.Context, *deploy.Plugin, *deploy.Context) error { return nil }

func TestNewOrchestratorRequiresInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Options)
		message string
	}{
		{name: "project", mutate: func(o *Options) { *o = Options{} }, message: "no project supplied"},
		{name: "ui", mutate: func(o *Options) { o.UI = nil }, message: "no ui supplied"},
		{name: "deploy config", mutate: func(o *Options) { o.DeployConfig = nil }, message: "no deploy configuration supplied"},
		{name: "app config", mutate: func(o *Options) { o.AppConfig = nil }, message: "no app configuration supplied"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := baseOptions()
			tt.mutate(&opts)

			_, err := NewOrchestrator(opts)
			require.Error(t, err)

			var cfgErr *apperrors.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			require.Equal(t, tt.message, cfgErr.Message)
		})
	}
}

func TestNewOrchestratorChecksProjectBeforeUI(t *testing.T) {
	t.Parallel()

	_, err := NewOrchestrator(Options{DeployConfig: stubView{}, AppConfig: stubView{}})
	require.EqualError(t, err, "configuration error: no project supplied")
}

func TestNewOrchestratorBuildsContext(t *testing.T) {
	t.Parallel()

	opts := baseOptions()
	orch, err := NewOrchestrator(opts)
	require.NoError(t, err)

	deployment := orch.Context()
	require.Same(t, opts.UI, deployment.UI)
	require.Same(t, opts.Project, deployment.Project)
	require.Equal(t, opts.DeployConfig, deployment.DeployConfig)
	require.Equal(t, opts.AppConfig, deployment.AppConfig)
	require.Zero(t, deployment.Data.Len())
	require.Equal(t, deploy.DefaultStages(), orch.Pipeline().Stages())
}

func TestRegistersQualifyingContributors(t *testing.T) {
	t.Parallel()

	addon := pluginAddon("ember-cli-deploy-test-plugin", deployKeywords, func(opts deploy.PluginOptions) (*deploy.Plugin, error) {
		return deploy.NewPlugin(opts.Name).
			On(deploy.StageWillDeploy, noopHook).
			On(deploy.StageUpload, noopHook), nil
	})

	opts := baseOptions(addon)
	opts.StageNames = []deploy.StageName{deploy.StageWillDeploy, deploy.StageUpload}
	orch, err := NewOrchestrator(opts)
	require.NoError(t, err)

	require.Len(t, orch.Pipeline().Handlers(deploy.StageWillDeploy), 1)
	require.Len(t, orch.Pipeline().Handlers(deploy.StageUpload), 1)
	require.Equal(t, "test-plugin", deploy.HandlerSource(orch.Pipeline().Handlers(deploy.StageUpload)[0]))
	require.Equal(t, []Registration{{
		Contributor: "ember-cli-deploy-test-plugin",
		Plugin:      "test-plugin",
		Stages:      []deploy.StageName{deploy.StageWillDeploy, deploy.StageUpload},
	}}, orch.Registrations())
}

func TestSkipsContributorsWithoutKeyword(t *testing.T) {
	t.Parallel()

	called := false
	addon := pluginAddon("ember-cli-deploy-test-plugin", nil, func(opts deploy.PluginOptions) (*deploy.Plugin, error) {
		called = true
		return deploy.NewPlugin(opts.Name).On(deploy.StageWillDeploy, noopHook), nil
	})

	opts := baseOptions(addon)
	opts.StageNames = []deploy.StageName{deploy.StageBuild}
	orch, err := NewOrchestrator(opts)
	require.NoError(t, err)

	require.False(t, called)
	require.False(t, orch.Pipeline().HasStage(deploy.StageWillDeploy))
	require.Empty(t, orch.Pipeline().Handlers(deploy.StageBuild))
	require.Empty(t, orch.Registrations())
}

func TestSkipsContributorsWithoutFactory(t *testing.T) {
	t.Parallel()

	opts := baseOptions(pluginAddon("ember-cli-deploy-test-plugin", deployKeywords, nil))
	opts.StageNames = []deploy.StageName{deploy.StageWillDeploy}
	orch, err := NewOrchestrator(opts)
	require.NoError(t, err)
	require.Empty(t, orch.Pipeline().Handlers(deploy.StageWillDeploy))
}

func TestRegistrationSkipsReservedUnknownAndNilHooks(t *testing.T) {
	t.Parallel()

	addon := pluginAddon("ember-cli-deploy-odd", deployKeywords, func(opts deploy.PluginOptions) (*deploy.Plugin, error) {
		plugin := deploy.NewPlugin(opts.Name)
		plugin.Hooks[deploy.ReservedHookName] = noopHook
		plugin.Hooks["teardown"] = noopHook
		plugin.Hooks[deploy.StageBuild] = nil
		plugin.Hooks[deploy.StageActivate] = noopHook
		return plugin, nil
	})

	opts := baseOptions(addon)
	opts.StageNames = []deploy.StageName{deploy.StageBuild, deploy.StageActivate, deploy.ReservedHookName}
	orch, err := NewOrchestrator(opts)
	require.NoError(t, err)

	require.Empty(t, orch.Pipeline().Handlers(deploy.StageBuild))
	require.Empty(t, orch.Pipeline().Handlers(deploy.ReservedHookName))
	require.Len(t, orch.Pipeline().Handlers(deploy.StageActivate), 1)
	require.Equal(t, []deploy.StageName{deploy.StageActivate}, orch.Registrations()[0].Stages)
}

func TestMalformedContributorsFailConstruction(t *testing.T) {
	t.Parallel()

	factoryErr := errors.New("factory exploded")
	tests := []struct {
		name    string
		addon   *deploy.Addon
		wantErr error
	}{
		{
			name: "name without prefix",
			addon: pluginAddon("deploy-test-plugin", deployKeywords, func(opts deploy.PluginOptions) (*deploy.Plugin, error) {
				return deploy.NewPlugin(opts.Name), nil
			}),
		},
		{
			name: "factory error",
			addon: pluginAddon("ember-cli-deploy-broken", deployKeywords, func(deploy.PluginOptions) (*deploy.Plugin, error) {
				return nil, factoryErr
			}),
			wantErr: factoryErr,
		},
		{
			name: "nil plugin",
			addon: pluginAddon("ember-cli-deploy-empty", deployKeywords, func(deploy.PluginOptions) (*deploy.Plugin, error) {
				return nil, nil
			}),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewOrchestrator(baseOptions(tt.addon))
			require.Error(t, err)

			var pluginErr *apperrors.PluginError
			require.True(t, errors.As(err, &pluginErr))
			require.Equal(t, tt.addon.PackageName, pluginErr.Plugin)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCustomQualifier(t *testing.T) {
	t.Parallel()

	addon := pluginAddon("ember-cli-deploy-custom", []string{"my-keyword"}, func(opts deploy.PluginOptions) (*deploy.Plugin, error) {
		return deploy.NewPlugin(opts.Name).On(deploy.StageBuild, noopHook), nil
	})

	opts := baseOptions(addon)
	opts.Qualifier = &deploy.Qualifier{Predicates: []deploy.Predicate{deploy.HasKeyword("my-keyword"), deploy.ProvidesFactory}}
	orch, err := NewOrchestrator(opts)
	require.NoError(t, err)
	require.Len(t, orch.Pipeline().Handlers(deploy.StageBuild), 1)
}

func TestKeywordOnlyQualifierSkipsContributorWithoutFactory(t *testing.T) {
	t.Parallel()

	bare := &deploy.Addon{PackageName: "ember-cli-deploy-bare", PackageKeywords: deployKeywords}
	built := pluginAddon("ember-cli-deploy-built", deployKeywords, func(opts deploy.PluginOptions) (*deploy.Plugin, error) {
		return deploy.NewPlugin(opts.Name).On(deploy.StageBuild, noopHook), nil
	})

	opts := baseOptions(bare, built)
	opts.Qualifier = &deploy.Qualifier{Predicates: []deploy.Predicate{deploy.HasKeyword(deploy.DefaultCapabilityKeyword)}}

	var orch *Orchestrator
	require.NotPanics(t, func() {
		var err error
		orch, err = NewOrchestrator(opts)
		require.NoError(t, err)
	})
	require.Len(t, orch.Pipeline().Handlers(deploy.StageBuild), 1)
	require.Len(t, orch.Registrations(), 1)
	require.Equal(t, "ember-cli-deploy-built", orch.Registrations()[0].Contributor)
}

func TestTypedNilAddonIsSkipped(t *testing.T) {
	t.Parallel()

	var missing *deploy.Addon
	orch, err := NewOrchestrator(baseOptions(missing))
	require.NoError(t, err)
	require.Empty(t, orch.Registrations())
}

func TestPlanRegistrationsMatchesOrchestrator(t *testing.T) {
	t.Parallel()

	addon := pluginAddon("ember-cli-deploy-multi", deployKeywords, func(opts deploy.PluginOptions) (*deploy.Plugin, error) {
		return deploy.NewPlugin(opts.Name).On(deploy.StageBuild, noopHook).On(deploy.StageDidDeploy, noopHook), nil
	})
	skipped := pluginAddon("ember-cli-deploy-other", nil, func(opts deploy.PluginOptions) (*deploy.Plugin, error) {
		return deploy.NewPlugin(opts.Name).On(deploy.StageBuild, noopHook), nil
	})

	plan, err := PlanRegistrations([]deploy.Contributor{addon, skipped}, []deploy.StageName{deploy.StageBuild}, nil)
	require.NoError(t, err)

	opts := baseOptions(addon, skipped)
	opts.StageNames = []deploy.StageName{deploy.StageBuild}
	orch, err := NewOrchestrator(opts)
	require.NoError(t, err)

	require.Equal(t, orch.Registrations(), plan)
	require.Equal(t, []deploy.StageName{deploy.StageBuild}, plan[0].Stages)
}

func TestPlanRegistrationsRejectsMalformedContributors(t *testing.T) {
	t.Parallel()

	hollow := pluginAddon("ember-cli-deploy-hollow", deployKeywords, func(deploy.PluginOptions) (*deploy.Plugin, error) {
		return nil, nil
	})
	unprefixed := pluginAddon("deploy-thing", deployKeywords, func(opts deploy.PluginOptions) (*deploy.Plugin, error) {
		return deploy.NewPlugin(opts.Name), nil
	})

	for _, contributor := range []deploy.Contributor{hollow, unprefixed} {
		_, err := PlanRegistrations([]deploy.Contributor{contributor}, nil, nil)
		var pluginErr *apperrors.PluginError
		require.True(t, errors.As(err, &pluginErr), contributor.Name())
		require.Equal(t, contributor.Name(), pluginErr.Plugin)
	}
}

func TestRunPassesConstructionContext(t *testing.T) {
	t.Parallel()

	var seen []*deploy.Context
	var mu sync.Mutex
	record := func(_ context.Context, _ *deploy.Plugin, deployment *deploy.Context) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, deployment)
		return nil
	}
	addon := pluginAddon("ember-cli-deploy-recorder", deployKeywords, func(opts deploy.PluginOptions) (*deploy.Plugin, error) {
		return deploy.NewPlugin(opts.Name).On(deploy.StageWillDeploy, record).On(deploy.StageDidDeploy, record), nil
	})

	events := &stubEvents{}
	opts := baseOptions(addon)
	opts.Events = events
	orch, err := NewOrchestrator(opts)
	require.NoError(t, err)

	require.NoError(t, orch.Run(context.Background()))
	require.Len(t, seen, 2)
	require.Same(t, orch.Context(), seen[0])
	require.Same(t, orch.Context(), seen[1])
	require.Equal(t, []string{ports.EventDeployStarted, ports.EventDeployCompleted}, events.types)
	require.Equal(t, "mock-project", events.payloads[0]["project"])
	require.Equal(t, "development", events.payloads[0]["environment"])
	require.Equal(t, []string{"willDeploy", "build", "upload", "activate", "didDeploy"}, events.payloads[0]["stages"])
	require.Contains(t, events.payloads[1], "duration_ms")
}

func TestRunReturnsHookFailureVerbatim(t *testing.T) {
	t.Parallel()

	boom := errors.New("upload rejected")
	didDeploy := false
	addon := pluginAddon("ember-cli-deploy-flaky", deployKeywords, func(opts deploy.PluginOptions) (*deploy.Plugin, error) {
		return deploy.NewPlugin(opts.Name).
			On(deploy.StageUpload, func(context.Context, *deploy.Plugin, *deploy.Context) error { return boom }).
			On(deploy.StageDidDeploy, func(context.Context, *deploy.Plugin, *deploy.Context) error {
				didDeploy = true
				return nil
			}), nil
	})

	events := &stubEvents{}
	opts := baseOptions(addon)
	opts.Events = events
	orch, err := NewOrchestrator(opts)
	require.NoError(t, err)

	err = orch.Run(context.Background())
	require.Same(t, boom, err)
	require.False(t, didDeploy)
	require.Equal(t, []string{ports.EventDeployStarted, ports.EventDeployFailed}, events.types)
}

func TestPluginStateSurvivesAcrossStages(t *testing.T) {
	t.Parallel()

	addon := pluginAddon("ember-cli-deploy-stateful", deployKeywords, func(opts deploy.PluginOptions) (*deploy.Plugin, error) {
		return deploy.NewPlugin(opts.Name).
			On(deploy.StageBuild, func(_ context.Context, owner *deploy.Plugin, _ *deploy.Context) error {
				owner.State["artifact"] = "dist.tar"
				return nil
			}).
			On(deploy.StageUpload, func(_ context.Context, owner *deploy.Plugin, deployment *deploy.Context) error {
				deployment.Data.Set("uploaded", owner.State["artifact"])
				return nil
			}), nil
	})

	orch, err := NewOrchestrator(baseOptions(addon))
	require.NoError(t, err)
	require.NoError(t, orch.Run(context.Background()))

	uploaded, ok := orch.Context().Data.Get("uploaded")
	require.True(t, ok)
	require.Equal(t, "dist.tar", uploaded)
}

func TestDeploymentStateFlowsThroughStages(t *testing.T) {
	t.Parallel()

	addon := pluginAddon("ember-cli-deploy-flow", deployKeywords, func(opts deploy.PluginOptions) (*deploy.Plugin, error) {
		return deploy.NewPlugin(opts.Name).
			On(deploy.StageWillDeploy, func(_ context.Context, _ *deploy.Plugin, d *deploy.Context) error {
				d.Data.Set("steps", []string{"willDeploy"})
				return nil
			}).
			On(deploy.StageActivate, func(_ context.Context, _ *deploy.Plugin, d *deploy.Context) error {
				steps, _ := d.Data.Get("steps")
				d.Data.Set("steps", append(steps.([]string), "activate"))
				return nil
			}), nil
	})

	orch, err := NewOrchestrator(baseOptions(addon))
	require.NoError(t, err)
	require.NoError(t, orch.Run(context.Background()))

	steps, _ := orch.Context().Data.Get("steps")
	require.Equal(t, []string{"willDeploy", "activate"}, steps)
}
