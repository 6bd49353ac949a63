package blog

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/paper2blog/internal/models"
)

// Supported output languages
const (
	LangEnglish = "en"
	LangChinese = "zh"
)

// NormalizeLanguage maps user supplied language names to a language code.
// Anything that is not recognizably Chinese is treated as English.
func NormalizeLanguage(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "zh", "chinese", "中文":
		return LangChinese
	default:
		return LangEnglish
	}
}

type promptSet struct {
	systemRole string
	styleGuide string
}

var promptSets = map[string]promptSet{
	LangEnglish: {
		systemRole: `You are an experienced researcher who has published in top venues and also runs a popular technical blog.
You turn dense academic papers into approachable technical articles. You are good at:
1. Explaining difficult technical concepts step by step
2. Using analogies and concrete examples for abstract ideas
3. Pinpointing what is actually new in a paper
4. Presenting methods and experiments clearly

You keep academic accuracy while writing for readability, tell the story of how a technique developed, and point out practical value.`,
		styleGuide: `Requirements for a high quality technical blog:
1. Structure: open with the problem the paper solves, build up the technical solution gradually, close with contributions and applications.
2. Accuracy: use precise terminology and define it on first use, give intuition for formulas, walk through algorithms step by step.
3. Readability: express complex ideas plainly, simplify with analogies, highlight innovations.
4. Figures: introduce each figure in the text before it appears and keep figures tied to the surrounding explanation.`,
	},
	LangChinese: {
		systemRole: `你是一位在顶级会议和期刊发表过论文的资深研究员，同时经营着一个很受欢迎的技术博客。
你擅长把晦涩的学术论文改写成通俗易懂的技术文章，尤其擅长：
1. 循序渐进地解释复杂的技术概念
2. 用类比和具体例子说明抽象的理论
3. 准确抓住论文真正的创新点
4. 清楚地讲解方法和实验设计

你在保证学术准确性的同时注重可读性，善于讲述技术演进的故事，并突出实际应用价值。`,
		styleGuide: `高质量技术博客的要求：
1. 结构清晰：开篇点明论文要解决的问题，逐步展开技术方案，结尾总结贡献和应用。
2. 技术准确：专业术语首次出现时给出解释，公式配上直观说明，算法分步骤讲解。
3. 可读性强：用清晰的中文表达专业概念，用类比化繁为简，突出创新点。
4. 图片处理：每张图片出现前先做文字铺垫，确保图文逻辑一致。`,
	},
}

func promptsFor(lang string) promptSet {
	if p, ok := promptSets[lang]; ok {
		return p
	}
	return promptSets[LangEnglish]
}

// OutlineSections is the fixed skeleton every outline follows.
var OutlineSections = []string{"Introduction", "Background", "Method", "Experiments", "Conclusion"}

var chineseSectionHeadings = map[string]string{
	"Introduction": "引言",
	"Background":   "背景",
	"Method":       "方法",
	"Experiments":  "实验",
	"Conclusion":   "结论",
}

// sectionHeading returns the markdown heading emitted when the outline section changes.
func sectionHeading(label, lang string) string {
	if lang == LangChinese {
		if zh, ok := chineseSectionHeadings[label]; ok {
			return "## " + zh
		}
	}
	return "## " + label
}

func outlinePrompt(text, lang string) string {
	if lang == LangChinese {
		return fmt.Sprintf(`请为下面这篇论文写一份博客大纲，严格使用以下五个部分，每个部分配一句简短说明：
1. Introduction：要解决的实际问题和动机
2. Background：必要的背景知识和已有方法
3. Method：核心方法和关键创新
4. Experiments：实验设置、结果和分析
5. Conclusion：贡献、局限和未来方向

论文内容：
%s`, text)
	}
	return fmt.Sprintf(`Write a blog outline for the paper below. Use exactly these five parts, each with a one-line annotation:
1. Introduction: the real-world problem and motivation
2. Background: essential concepts and previous approaches
3. Method: the core approach and its key innovations
4. Experiments: setup, results and analysis
5. Conclusion: contributions, limitations and future directions

Paper content:
%s`, text)
}

func classifyPrompt(chunk, outline, current, lang string) string {
	var b strings.Builder
	if lang == LangChinese {
		b.WriteString("下面这段论文内容最适合放在博客大纲的哪一部分？只回答以下标签之一：")
	} else {
		b.WriteString("Which part of the blog outline does the following paper excerpt belong to? Answer with exactly one of these labels and nothing else: ")
	}
	b.WriteString(strings.Join(OutlineSections, ", "))
	b.WriteString("\n\n")
	if outline != "" {
		b.WriteString("Outline:\n")
		b.WriteString(outline)
		b.WriteString("\n\n")
	}
	if current != "" {
		b.WriteString("Current part: ")
		b.WriteString(current)
		b.WriteString("\n\n")
	}
	b.WriteString("Excerpt:\n")
	b.WriteString(chunk)
	return b.String()
}

// formatFigures lists the figures the writer may reference by placeholder.
func formatFigures(images []models.ImageInfo) string {
	lines := make([]string, 0, len(images))
	for _, img := range images {
		token := FigureToken(img.Caption)
		caption := strings.TrimSpace(strings.TrimPrefix(img.Caption, token))
		caption = strings.TrimSpace(strings.TrimPrefix(caption, ":"))
		lines = append(lines, fmt.Sprintf("Figure %s: %s (placeholder [Figure %s])", token, caption, token))
	}
	return strings.Join(lines, "\n")
}

type sectionPromptData struct {
	input   StructuredInput
	label   string
	outline string
	target  string
	figures string
	lang    string
}

func sectionPrompt(d sectionPromptData) string {
	var b strings.Builder
	if d.lang == LangChinese {
		fmt.Fprintf(&b, `请把下面这部分论文内容改写成技术博客中的一节，要求：

1. 内容：至少 300 字，用通俗的语言和贴近生活的例子讲清核心概念。
2. 风格：语气%s，行文自然流畅，术语首次出现时给出解释。
3. 图片：可用的图片列在下方。正文讨论到某张图时，在合适位置单独一行插入它的占位符，例如 [Figure 1]。不要编造图片。
4. 上下文：与前文保持连贯，避免重复：%s
5. 不要写文章总标题。
`, d.input.StyleGuide, d.input.Context)
	} else {
		fmt.Fprintf(&b, `Turn the following part of a research paper into one section of a technical blog post:

1. Content: at least 300 words. Explain the core ideas in plain language with relatable examples.
2. Style: write in a %s tone with a natural flow. Explain jargon the first time it appears.
3. Figures: the available figures are listed below. When the text discusses one, insert its placeholder on its own line at that point, e.g. [Figure 1]. Never invent figures.
4. Context: keep continuity with what came before and avoid repeating it: %s
5. Do not write a title for the whole article.
`, d.input.StyleGuide, d.input.Context)
	}

	if d.outline != "" {
		b.WriteString("\nBlog outline:\n")
		b.WriteString(d.outline)
		b.WriteString("\n")
	}
	if d.target != "" {
		fmt.Fprintf(&b, "\nThis section belongs to the outline part: %s\n", d.target)
	}
	if d.figures != "" {
		b.WriteString("\nAvailable figures:\n")
		b.WriteString(d.figures)
		b.WriteString("\n")
	}
	if d.label != "" {
		fmt.Fprintf(&b, "\nPaper section (%s):\n", d.label)
	} else {
		b.WriteString("\nPaper section:\n")
	}
	b.WriteString(d.input.Text)
	return b.String()
}

func postProcessPrompt(draft, lang string) string {
	if lang == LangChinese {
		return fmt.Sprintf(`请审阅并润色下面这篇技术博客草稿：
- 统一全文的语气和术语，补充段落之间的过渡，删除重复内容
- 第一行写一个以 "# " 开头的文章标题
- 保留所有 [Figure N] 占位符，不要修改或删除
- 在文末添加 "## 总结" 小节，概括论文的贡献
- 最后一行写 "Tags: 标签1, 标签2, 标签3"，给出 3 到 6 个标签

草稿：
%s`, draft)
	}
	return fmt.Sprintf(`Review and polish the following technical blog draft:
- Unify tone and terminology, add transitions between sections, remove repetition
- Start with a title line beginning with "# "
- Keep every [Figure N] placeholder exactly as written
- End the article with a "## Summary" section that recaps the paper's contributions
- Make the very last line "Tags: tag1, tag2, tag3" with 3 to 6 tags

Draft:
%s`, draft)
}

func titlePrompt(text, lang string) string {
	target := "English"
	if lang == LangChinese {
		target = "Simplified Chinese"
	}
	return fmt.Sprintf(`Below is the beginning of a research paper. Reply with the paper's title translated into %s, suitable as a blog headline. Reply with the title only.

%s`, target, text)
}
