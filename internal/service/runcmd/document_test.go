package runcmd_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"ssmrun/internal/service/runcmd"
	"ssmrun/internal/service/runcmd/runcmdtest"
)

func TestApplyCreatesThenAppendsVersions(t *testing.T) {
	ctx := context.Background()
	m := runcmd.NewDocumentManager(runcmdtest.New())

	created, err := m.Apply(ctx, "Install-Builder", `{"v":1}`, runcmd.FormatJSON)
	require.NoError(t, err)
	assert.True(t, created.Created)
	assert.Equal(t, 1, created.Document.LatestVersion)
	assert.Equal(t, 1, created.Document.DefaultVersion)

	updated, err := m.Apply(ctx, "Install-Builder", `{"v":2}`, runcmd.FormatJSON)
	require.NoError(t, err)
	assert.False(t, updated.Created)
	assert.Equal(t, 2, updated.Document.LatestVersion)
	assert.Equal(t, 1, updated.Document.DefaultVersion, "new version must not auto-promote")

	first, err := m.Content(ctx, "Install-Builder", 1)
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, first)
}

func TestApplyIdenticalContentIsUnchanged(t *testing.T) {
	ctx := context.Background()
	m := runcmd.NewDocumentManager(runcmdtest.New())

	_, err := m.Apply(ctx, "Install-Builder", `{"v":1}`, runcmd.FormatJSON)
	require.NoError(t, err)

	res, err := m.Apply(ctx, "Install-Builder", `{"v":1}`, runcmd.FormatJSON)
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
	assert.Equal(t, 1, res.Document.LatestVersion)
}

func TestApplyRejectsEmptyInput(t *testing.T) {
	m := runcmd.NewDocumentManager(runcmdtest.New())
	_, err := m.Apply(context.Background(), "", "{}", runcmd.FormatJSON)
	assert.Error(t, err)
	_, err = m.Apply(context.Background(), "Doc", "  \n", runcmd.FormatJSON)
	assert.Error(t, err)
}

func TestPromoteKeepsContent(t *testing.T) {
	ctx := context.Background()
	m := runcmd.NewDocumentManager(runcmdtest.New())
	for i := 1; i <= 3; i++ {
		_, err := m.Apply(ctx, "Doc", fmt.Sprintf(`{"v":%d}`, i), runcmd.FormatJSON)
		require.NoError(t, err)
	}

	before, err := m.Content(ctx, "Doc", 2)
	require.NoError(t, err)

	doc, err := m.Promote(ctx, "Doc", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.DefaultVersion)
	assert.Equal(t, 3, doc.LatestVersion)

	after, err := m.Content(ctx, "Doc", 2)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	byDefault, err := m.Content(ctx, "Doc", 0)
	require.NoError(t, err)
	assert.Equal(t, before, byDefault)
}

func TestPromoteRejectsUnknownVersion(t *testing.T) {
	ctx := context.Background()
	m := runcmd.NewDocumentManager(runcmdtest.New())
	_, err := m.Apply(ctx, "Doc", `{"v":1}`, runcmd.FormatJSON)
	require.NoError(t, err)

	_, err = m.Promote(ctx, "Doc", 2)
	assert.Error(t, err)
	_, err = m.Promote(ctx, "Doc", 0)
	assert.Error(t, err)
	_, err = m.Promote(ctx, "Missing", 1)
	assert.ErrorIs(t, err, runcmd.ErrDocumentNotFound)
}

func TestDeleteRemovesAllVersions(t *testing.T) {
	ctx := context.Background()
	m := runcmd.NewDocumentManager(runcmdtest.New())
	_, err := m.Apply(ctx, "Doc", `{"v":1}`, runcmd.FormatJSON)
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "Doc"))
	_, found, err := m.Describe(ctx, "Doc")
	require.NoError(t, err)
	assert.False(t, found)

	assert.ErrorIs(t, m.Delete(ctx, "Doc"), runcmd.ErrDocumentNotFound)
}

func TestVersionsListsDefault(t *testing.T) {
	ctx := context.Background()
	m := runcmd.NewDocumentManager(runcmdtest.New())
	_, _ = m.Apply(ctx, "Doc", `{"v":1}`, runcmd.FormatJSON)
	_, _ = m.Apply(ctx, "Doc", `{"v":2}`, runcmd.FormatJSON)
	_, err := m.Promote(ctx, "Doc", 2)
	require.NoError(t, err)

	versions, err := m.Versions(ctx, "Doc")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.False(t, versions[0].IsDefault)
	assert.True(t, versions[1].IsDefault)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, runcmd.FormatYAML, runcmd.FormatFromPath("install.yaml"))
	assert.Equal(t, runcmd.FormatYAML, runcmd.FormatFromPath("s3://bucket/install.YML"))
	assert.Equal(t, runcmd.FormatJSON, runcmd.FormatFromPath("install.json"))
	assert.Equal(t, runcmd.FormatJSON, runcmd.FormatFromPath("install"))
}

// バージョン番号はActive期間中に単調増加し、昇格は内容を変えない
func TestDocumentVersionProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		m := runcmd.NewDocumentManager(runcmdtest.New())
		const name = "Doc"

		contents := map[int]string{}
		latest := 0
		counter := 0

		ops := rapid.SliceOfN(rapid.IntRange(0, 3), 1, 30).Draw(t, "ops")
		for _, op := range ops {
			switch op {
			case 0, 1: // update
				counter++
				content := fmt.Sprintf(`{"n":%d}`, counter)
				res, err := m.Apply(ctx, name, content, runcmd.FormatJSON)
				if err != nil {
					t.Fatalf("apply: %v", err)
				}
				if res.Document.LatestVersion <= latest {
					t.Fatalf("version did not increase: %d -> %d", latest, res.Document.LatestVersion)
				}
				if _, used := contents[res.Document.LatestVersion]; used {
					t.Fatalf("version %d reused", res.Document.LatestVersion)
				}
				latest = res.Document.LatestVersion
				contents[latest] = content
			case 2: // promote
				if latest == 0 {
					continue
				}
				k := rapid.IntRange(1, latest).Draw(t, "k")
				before, err := m.Content(ctx, name, k)
				if err != nil {
					t.Fatalf("content: %v", err)
				}
				if _, err := m.Promote(ctx, name, k); err != nil {
					t.Fatalf("promote: %v", err)
				}
				after, _ := m.Content(ctx, name, k)
				if before != after || after != contents[k] {
					t.Fatalf("promote changed content of v%d", k)
				}
				for v, c := range contents {
					got, _ := m.Content(ctx, name, v)
					if got != c {
						t.Fatalf("v%d content changed after promote", v)
					}
				}
			case 3: // delete
				if latest == 0 {
					continue
				}
				if err := m.Delete(ctx, name); err != nil {
					t.Fatalf("delete: %v", err)
				}
				latest = 0
				contents = map[int]string{}
			}
		}
	})
}
