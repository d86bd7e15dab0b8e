package prompting

import (
	"fmt"
	"strings"
)

// SystemPrompt frames the model as a Hakimi-style music prompt engineer.
// The wording matters: it steers the model toward style descriptions and
// tags rather than full lyrics.
const SystemPrompt = "你是一个“哈基米风格音乐提示词工程师”。" +
	"你的任务是：根据用户的需求 + 提供的哈基米相关语料，" +
	"为音乐生成模型（如 Suno）设计合适的提示词。" +
	"重点：你主要输出“音乐风格描述和标签”，而不是完整歌词。"

// userPromptTemplate expects the request text and the snippet block. The
// embedded JSON shape doubles as the schema the response is decoded against.
const userPromptTemplate = `用户需求（他想要什么样的哈基米音乐）：
%s

哈基米相关语气/梗示例（仅供你理解语气和氛围，生成提示词时不必逐字复制）：
%s

请你综合用户需求 + 上面的语气示例，设计一组给 Suno 这类音乐 AI 使用的提示信息。
只允许输出一个 JSON，对象格式如下（不要包含注释）：

{
  "music_prompt_en": "string, 用英文写一段供 Suno 使用的音乐描述，要求生成的歌曲为日语，不超过 120 个英文单词，包含风格、情绪、节奏、乐器、演唱者大致感觉等，比如 high-pitched cute anime idol female vocal, meme-like, high energy, electronic J-pop 等。",
  "music_prompt_zh": "string，对以上英文提示的中文解释，方便人类阅读。",
  "style_tags": ["tag1", "tag2", "tag3"],
  "use_lyrics": false,
  "lyrics_zh": ""
}

要求：
1. 默认情况下，不要写完整歌词，只做“音乐提示词工程师”，所以 use_lyrics 默认应为 false。
2. 只有在你认为“加一小段 2-4 行中文 Hook 能明显帮助音乐生成效果”时，可以把 use_lyrics 设为 true，并在 lyrics_zh 里给出那几行短句。
3. music_prompt_en 必须是纯英文，适合作为 Suno 的提示词；可以适当提到“meme-like, abstract, repetitive hook, cute and chaotic”等。
4. 必须是合法 JSON，最外层是一个对象，不要在 JSON 外加任何多余文字，不要加解释。`

const emptyKnowledgeBlock = "（无额外语料）"

// buildUserPrompt assembles the user message from the request text and the
// sampled corpus snippets. Snippets are advisory tone examples, not lyrics.
func buildUserPrompt(need string, snippets []string) string {
	knowledge := emptyKnowledgeBlock
	if len(snippets) > 0 {
		lines := make([]string, 0, len(snippets))
		for _, snippet := range snippets {
			lines = append(lines, "- "+snippet)
		}
		knowledge = strings.Join(lines, "\n")
	}
	return fmt.Sprintf(userPromptTemplate, need, knowledge)
}
