package openai

import "github.com/petal-labs/oaikit/core"

// Model constants for commonly used OpenAI models.
const (
	ModelGPT41     core.ModelID = "gpt-4.1"
	ModelGPT41Mini core.ModelID = "gpt-4.1-mini"
	ModelGPT41Nano core.ModelID = "gpt-4.1-nano"
	ModelGPT4o     core.ModelID = "gpt-4o"
	ModelGPT4oMini core.ModelID = "gpt-4o-mini"
	ModelGPT35     core.ModelID = "gpt-3.5-turbo"
	ModelO4Mini    core.ModelID = "o4-mini"
	ModelO3Mini    core.ModelID = "o3-mini"

	ModelTextEmbedding3Small core.ModelID = "text-embedding-3-small"
	ModelTextEmbedding3Large core.ModelID = "text-embedding-3-large"
	ModelTextEmbeddingAda002 core.ModelID = "text-embedding-ada-002"

	ModelGPTImage1 core.ModelID = "gpt-image-1"
	ModelDALLE3    core.ModelID = "dall-e-3"
	ModelDALLE2    core.ModelID = "dall-e-2"

	ModelOmniModerationLatest core.ModelID = "omni-moderation-latest"
)

var (
	chatFeatures = []core.Feature{
		core.FeatureChat, core.FeatureChatStreaming, core.FeatureToolCalling,
		core.FeatureStructuredJSON, core.FeatureBatch,
	}
	visionChatFeatures = append(append([]core.Feature(nil), chatFeatures...), core.FeatureVision)
)

// models is the static catalog returned by Models().
var models = []core.ModelInfo{
	{ID: ModelGPT41, DisplayName: "GPT-4.1", Capabilities: visionChatFeatures},
	{ID: ModelGPT41Mini, DisplayName: "GPT-4.1 Mini", Capabilities: visionChatFeatures},
	{ID: ModelGPT41Nano, DisplayName: "GPT-4.1 Nano", Capabilities: visionChatFeatures},
	{ID: ModelGPT4o, DisplayName: "GPT-4o", Capabilities: append(append([]core.Feature(nil), visionChatFeatures...), core.FeatureAudio)},
	{ID: ModelGPT4oMini, DisplayName: "GPT-4o Mini", Capabilities: visionChatFeatures},
	{ID: ModelGPT35, DisplayName: "GPT-3.5 Turbo", Capabilities: chatFeatures},
	{ID: ModelO4Mini, DisplayName: "o4-mini", Capabilities: visionChatFeatures},
	{ID: ModelO3Mini, DisplayName: "o3-mini", Capabilities: chatFeatures},

	{ID: ModelTextEmbedding3Small, DisplayName: "Text Embedding 3 Small", Capabilities: []core.Feature{core.FeatureEmbeddings, core.FeatureBatch}},
	{ID: ModelTextEmbedding3Large, DisplayName: "Text Embedding 3 Large", Capabilities: []core.Feature{core.FeatureEmbeddings, core.FeatureBatch}},
	{ID: ModelTextEmbeddingAda002, DisplayName: "Text Embedding Ada 002", Capabilities: []core.Feature{core.FeatureEmbeddings, core.FeatureBatch}},

	{ID: ModelGPTImage1, DisplayName: "GPT Image 1", Capabilities: []core.Feature{core.FeatureImageGeneration}},
	{ID: ModelDALLE3, DisplayName: "DALL-E 3", Capabilities: []core.Feature{core.FeatureImageGeneration}},
	{ID: ModelDALLE2, DisplayName: "DALL-E 2", Capabilities: []core.Feature{core.FeatureImageGeneration}},

	{ID: ModelWhisper1, DisplayName: "Whisper", Capabilities: []core.Feature{core.FeatureAudio}},
	{ID: ModelGPT4oTranscribe, DisplayName: "GPT-4o Transcribe", Capabilities: []core.Feature{core.FeatureAudio}},
	{ID: ModelGPT4oMiniTTS, DisplayName: "GPT-4o Mini TTS", Capabilities: []core.Feature{core.FeatureAudio}},
	{ID: ModelTTS1, DisplayName: "TTS-1", Capabilities: []core.Feature{core.FeatureAudio}},
	{ID: ModelTTS1HD, DisplayName: "TTS-1 HD", Capabilities: []core.Feature{core.FeatureAudio}},

	{ID: ModelOmniModerationLatest, DisplayName: "Omni Moderation", Capabilities: []core.Feature{core.FeatureModeration}},
}

// modelRegistry maps model IDs to their catalog entry.
var modelRegistry = func() map[core.ModelID]*core.ModelInfo {
	m := make(map[core.ModelID]*core.ModelInfo, len(models))
	for i := range models {
		m[models[i].ID] = &models[i]
	}
	return m
}()

// GetModelInfo returns the catalog entry for id, or nil if unknown.
func GetModelInfo(id core.ModelID) *core.ModelInfo {
	return modelRegistry[id]
}
