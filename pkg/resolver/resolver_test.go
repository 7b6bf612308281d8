package resolver

import (
	"testing"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIndex serves manifests from a map. Versions must be listed descending,
// matching the index manager contract.
type fakeIndex map[string][]*model.Manifest

func (f fakeIndex) Lookup(name string) ([]*model.Manifest, error) {
	manifests, ok := f[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrPackageNotFound, "%s", name)
	}
	return manifests, nil
}

func mk(name, version string, deps ...model.Dependency) *model.Manifest {
	return &model.Manifest{Name: name, Version: version, Dependencies: deps}
}

func dep(name, constraint string) model.Dependency {
	return model.Dependency{Name: name, Constraint: constraint}
}

func request(name, constraint string) model.Request {
	return model.Request{Name: name, Constraint: constraint, Reason: model.ReasonManual}
}

func versions(t *testing.T, target model.TargetSet) map[string]string {
	t.Helper()
	out := make(map[string]string, len(target))
	for name, sel := range target {
		out[name] = sel.Manifest.Version
	}
	return out
}

func TestResolveSimpleChain(t *testing.T) {
	idx := fakeIndex{
		"app": {mk("app", "1.0.0", dep("lib", ">= 1.0.0"))},
		"lib": {mk("lib", "1.2.0"), mk("lib", "1.0.0")},
	}

	target, err := New(idx, nil).Resolve([]model.Request{request("app", "")})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"app": "1.0.0", "lib": "1.2.0"}, versions(t, target))
	assert.Equal(t, model.ReasonManual, target["app"].Reason)
	assert.Equal(t, model.ReasonDependency, target["lib"].Reason)
}

func TestResolvePicksHighestSatisfying(t *testing.T) {
	idx := fakeIndex{
		"app": {mk("app", "1.0.0", dep("lib", ">= 1.0.0, < 2.0.0"))},
		"lib": {mk("lib", "2.1.0"), mk("lib", "1.4.0"), mk("lib", "1.0.0")},
	}

	target, err := New(idx, nil).Resolve([]model.Request{request("app", "")})
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", target["lib"].Manifest.Version)
}

func TestResolveBacktracksToOlderVersion(t *testing.T) {
	// app 2.0.0 needs a core that does not exist; the solver must back off
	// to app 1.0.0 rather than fail.
	idx := fakeIndex{
		"app": {
			mk("app", "2.0.0", dep("core", ">= 2.0.0")),
			mk("app", "1.0.0", dep("core", ">= 1.0.0")),
		},
		"core": {mk("core", "1.5.0")},
	}

	target, err := New(idx, nil).Resolve([]model.Request{request("app", "")})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"app": "1.0.0", "core": "1.5.0"}, versions(t, target))
}

func TestResolveDiamondDependency(t *testing.T) {
	idx := fakeIndex{
		"app":  {mk("app", "1.0.0", dep("web", ""), dep("db", ""))},
		"web":  {mk("web", "1.0.0", dep("core", ">= 1.0.0"))},
		"db":   {mk("db", "1.0.0", dep("core", "< 2.0.0"))},
		"core": {mk("core", "2.0.0"), mk("core", "1.9.0")},
	}

	target, err := New(idx, nil).Resolve([]model.Request{request("app", "")})
	require.NoError(t, err)
	assert.Equal(t, "1.9.0", target["core"].Manifest.Version)
}

func TestResolveLaterDecisionInvalidatesEarlierChoice(t *testing.T) {
	// web is resolved before db (sorted order is db first, so flip names):
	// the package resolved second constrains the one resolved first, forcing
	// a backjump to the earlier decision.
	idx := fakeIndex{
		"app":  {mk("app", "1.0.0", dep("alib", ""), dep("zlib", ""))},
		"alib": {mk("alib", "2.0.0"), mk("alib", "1.0.0")},
		"zlib": {mk("zlib", "1.0.0", dep("alib", "< 2.0.0"))},
	}

	target, err := New(idx, nil).Resolve([]model.Request{request("app", "")})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", target["alib"].Manifest.Version)
}

func TestResolveConflictReportsConstraints(t *testing.T) {
	idx := fakeIndex{
		"a":    {mk("a", "1.0.0", dep("core", "< 2.0.0"))},
		"b":    {mk("b", "1.0.0", dep("core", ">= 2.0.0"))},
		"core": {mk("core", "2.0.0"), mk("core", "1.0.0")},
	}

	_, err := New(idx, nil).Resolve([]model.Request{request("a", ""), request("b", "")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrResolutionConflict))

	var conflict *errors.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.NotEmpty(t, conflict.Constraints)
}

func TestResolveConflictWithPinnedInstalled(t *testing.T) {
	// lib is installed at 1.5.0 and not part of the request, so it is
	// pinned; a request needing lib >= 2.0.0 cannot be satisfied.
	installed := map[string]*model.InstalledPackage{
		"lib": {Name: "lib", Version: "1.5.0", Reason: model.ReasonDependency},
	}
	idx := fakeIndex{
		"app": {mk("app", "1.0.0", dep("lib", ">= 2.0.0"))},
		"lib": {mk("lib", "2.0.0"), mk("lib", "1.5.0")},
	}

	_, err := New(idx, installed).Resolve([]model.Request{request("app", "")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrResolutionConflict))
}

func TestResolvePrefersInstalledVersion(t *testing.T) {
	installed := map[string]*model.InstalledPackage{
		"lib": {Name: "lib", Version: "1.0.0", Reason: model.ReasonManual},
	}
	idx := fakeIndex{
		"lib": {mk("lib", "2.0.0"), mk("lib", "1.0.0")},
	}

	// Requested without a constraint: the installed version satisfies it, so
	// nothing churns.
	target, err := New(idx, installed).Resolve([]model.Request{request("lib", "")})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", target["lib"].Manifest.Version)
	assert.Equal(t, model.ReasonManual, target["lib"].Reason)
}

func TestResolveExplicitUpgrade(t *testing.T) {
	installed := map[string]*model.InstalledPackage{
		"lib": {Name: "lib", Version: "1.0.0", Reason: model.ReasonManual},
	}
	idx := fakeIndex{
		"lib": {mk("lib", "2.0.0"), mk("lib", "1.0.0")},
	}

	target, err := New(idx, installed).Resolve([]model.Request{request("lib", "= 2.0.0")})
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", target["lib"].Manifest.Version)
}

func TestResolveKeepsUninvolvedInstalled(t *testing.T) {
	installed := map[string]*model.InstalledPackage{
		"other": {Name: "other", Version: "3.0.0", Reason: model.ReasonManual},
	}
	idx := fakeIndex{
		"app": {mk("app", "1.0.0")},
	}

	target, err := New(idx, installed).Resolve([]model.Request{request("app", "")})
	require.NoError(t, err)
	require.True(t, target.Contains("other"))
	assert.True(t, target["other"].Pinned)
	assert.Equal(t, "3.0.0", target["other"].Manifest.Version)
}

func TestResolveInstalledButUnindexed(t *testing.T) {
	// A package that is installed but has vanished from every index must
	// still be resolvable as a dependency at its installed version.
	installed := map[string]*model.InstalledPackage{
		"legacy": {Name: "legacy", Version: "0.9.0", Reason: model.ReasonDependency},
	}
	idx := fakeIndex{
		"app": {mk("app", "1.0.0", dep("legacy", ">= 0.9.0"))},
	}

	target, err := New(idx, installed).Resolve([]model.Request{request("app", "")})
	require.NoError(t, err)
	assert.Equal(t, "0.9.0", target["legacy"].Manifest.Version)
}

func TestResolveUnknownPackage(t *testing.T) {
	_, err := New(fakeIndex{}, nil).Resolve([]model.Request{request("ghost", "")})
	assert.True(t, errors.Is(err, errors.ErrPackageNotFound))
}

func TestResolveUnknownDependency(t *testing.T) {
	idx := fakeIndex{
		"app": {mk("app", "1.0.0", dep("ghost", ""))},
	}
	_, err := New(idx, nil).Resolve([]model.Request{request("app", "")})
	assert.True(t, errors.Is(err, errors.ErrPackageNotFound))
}

func TestResolveInvalidRequest(t *testing.T) {
	_, err := New(fakeIndex{}, nil).Resolve([]model.Request{{Name: ""}})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = New(fakeIndex{}, nil).Resolve([]model.Request{{Name: "a", Constraint: "not valid!!"}})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestResolveDeterminism(t *testing.T) {
	idx := fakeIndex{
		"app":  {mk("app", "1.0.0", dep("web", ""), dep("db", ""))},
		"web":  {mk("web", "1.0.0", dep("core", ">= 1.0.0"))},
		"db":   {mk("db", "1.0.0", dep("core", "< 2.0.0"))},
		"core": {mk("core", "2.0.0"), mk("core", "1.9.0"), mk("core", "1.0.0")},
	}
	requests := []model.Request{request("app", "")}

	first, err := New(idx, nil).Resolve(requests)
	require.NoError(t, err)
	for range 10 {
		again, err := New(idx, nil).Resolve(requests)
		require.NoError(t, err)
		assert.Equal(t, versions(t, first), versions(t, again))
	}
}

func TestResolveDuplicateRequestsAreJoined(t *testing.T) {
	idx := fakeIndex{
		"lib": {mk("lib", "2.0.0"), mk("lib", "1.5.0"), mk("lib", "1.0.0")},
	}

	target, err := New(idx, nil).Resolve([]model.Request{
		request("lib", ">= 1.0.0"),
		request("lib", "< 2.0.0"),
	})
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", target["lib"].Manifest.Version)
}
