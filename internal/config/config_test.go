package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
ontology_path: configs/ontology.yaml
vector_store:
  backend: qdrant
  dsn: localhost:6334
  collection: lectures
  dimension: 3072
embedding:
  provider: openai
  model: text-embedding-3-large
text_model:
  provider: openai
  model: gpt-4o-mini
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_AppliesDefaults(t *testing.T) {
	p := writeConfig(t, sampleYAML)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 100, cfg.VectorStore.BatchSize)
	require.Equal(t, 0.60, cfg.Retrieval.SimilarityFloor)
	require.Equal(t, 0.6, cfg.Retrieval.PlannerConfidenceGate)
	require.Equal(t, 10, cfg.Retrieval.DefaultK)
	require.Equal(t, 50, cfg.Retrieval.LowConfidenceK)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestLoad_RequiresOntologyPath(t *testing.T) {
	p := writeConfig(t, "vector_store:\n  dimension: 3072\n")
	_, err := Load(p)
	require.Error(t, err)
}

func TestLoad_RequiresPositiveDimension(t *testing.T) {
	p := writeConfig(t, "ontology_path: x.yaml\nvector_store:\n  dimension: 0\n")
	_, err := Load(p)
	require.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	p := writeConfig(t, sampleYAML)
	t.Setenv("VECTOR_STORE_DSN", "prod-qdrant:6334")
	t.Setenv("RETRIEVAL_SIMILARITY_FLOOR", "0.72")

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "prod-qdrant:6334", cfg.VectorStore.DSN)
	require.Equal(t, 0.72, cfg.Retrieval.SimilarityFloor)
}
