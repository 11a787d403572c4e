package catalog

// builtin lists the models shipped with the assistant. The first entry of
// each category is that category's default.
var builtin = []Descriptor{
	{
		Name:        "qwen2.5-1.5b-instruct",
		DisplayName: "Qwen 2.5 1.5B Instruct",
		Provider:    "Qwen",
		SizeBytes:   986_000_000,
		Category:    CategoryCore,
		Repo:        "Qwen/Qwen2.5-1.5B-Instruct-GGUF",
		Files:       []string{"qwen2.5-1.5b-instruct-q4_k_m.gguf"},
	},
	{
		Name:        "llama-3.2-3b-instruct",
		DisplayName: "Llama 3.2 3B Instruct",
		Provider:    "Meta",
		SizeBytes:   2_020_000_000,
		Category:    CategoryCore,
		Repo:        "hugging-quants/Llama-3.2-3B-Instruct-Q4_K_M-GGUF",
		Files:       []string{"llama-3.2-3b-instruct-q4_k_m.gguf"},
	},
	{
		Name:        "phi-3-mini-4k-instruct",
		DisplayName: "Phi-3 Mini 4K Instruct",
		Provider:    "Microsoft",
		SizeBytes:   2_390_000_000,
		Category:    CategoryCore,
		Repo:        "microsoft/Phi-3-mini-4k-instruct-gguf",
		Files:       []string{"Phi-3-mini-4k-instruct-q4.gguf"},
	},
	{
		Name:        "deepseek-r1-distill-qwen-1.5b",
		DisplayName: "DeepSeek R1 Distill Qwen 1.5B",
		Provider:    "DeepSeek",
		SizeBytes:   1_120_000_000,
		Category:    CategoryReasoning,
		Repo:        "unsloth/DeepSeek-R1-Distill-Qwen-1.5B-GGUF",
		Files:       []string{"DeepSeek-R1-Distill-Qwen-1.5B-Q4_K_M.gguf"},
	},
	{
		Name:        "qwen3-4b",
		DisplayName: "Qwen 3 4B",
		Provider:    "Qwen",
		SizeBytes:   2_500_000_000,
		Category:    CategoryReasoning,
		Repo:        "Qwen/Qwen3-4B-GGUF",
		Files:       []string{"Qwen3-4B-Q4_K_M.gguf"},
	},
	{
		Name:        "qwen2-vl-2b-instruct",
		DisplayName: "Qwen2-VL 2B Instruct",
		Provider:    "Qwen",
		SizeBytes:   1_600_000_000,
		Category:    CategoryVision,
		Repo:        "ggml-org/Qwen2-VL-2B-Instruct-GGUF",
		Files:       []string{"Qwen2-VL-2B-Instruct-Q4_K_M.gguf", "mmproj-Qwen2-VL-2B-Instruct-f16.gguf"},
	},
	{
		Name:        "whisper-base-en",
		DisplayName: "Whisper Base (English)",
		Provider:    "OpenAI",
		SizeBytes:   148_000_000,
		Category:    CategoryAudio,
		Repo:        "ggerganov/whisper.cpp",
		Files:       []string{"ggml-base.en.bin"},
	},
	{
		Name:        "nomic-embed-text-v1.5",
		DisplayName: "Nomic Embed Text v1.5",
		Provider:    "Nomic AI",
		SizeBytes:   84_000_000,
		Category:    CategoryEmbedding,
		Repo:        "nomic-ai/nomic-embed-text-v1.5-GGUF",
		Files:       []string{"nomic-embed-text-v1.5.Q4_K_M.gguf"},
	},
}

// Builtin returns the catalog shipped with the binary.
func Builtin() *Catalog {
	c, err := New(builtin)
	if err != nil {
		panic("catalog: invalid builtin catalog: " + err.Error())
	}
	return c
}
