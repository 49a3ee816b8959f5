// Package command turns spoken or typed host commands into typed intents.
//
// Parse is a pure text classifier: it never looks at lottery state. Resolving
// names and levels to records is left to the caller.
package command

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

// Intent is the classified purpose of a command.
type Intent string

const (
	IntentWakeup    Intent = "WAKEUP"
	IntentEasterEgg Intent = "EASTER_EGG"
	IntentStartDraw Intent = "START_DRAW"
	IntentStopDraw  Intent = "STOP_DRAW"
	IntentReset     Intent = "RESET"
	IntentRig       Intent = "RIG"
	IntentCancel    Intent = "CANCEL"
	IntentChat      Intent = "CHAT"
)

// Params carries the values extracted from a command.
// PrizeLevel is 0 when the command did not name a prize.
type Params struct {
	ParticipantName string `json:"participantName,omitempty"`
	PrizeLevel      int    `json:"prizeLevel,omitempty"`
}

// Command is the result of parsing one utterance.
type Command struct {
	Type    Intent `json:"type"`
	Params  Params `json:"params"`
	Reply   string `json:"reply"`
	RawText string `json:"rawText"`
}

const wakeWord = "小寶"

var (
	punctuation = regexp.MustCompile(`[，。！？、,.!?\s]`)
	wakeWords   = regexp.MustCompile(`(小[寶宝])+`)
	startRe     = regexp.MustCompile(`(特|一|二|三|四|五|幸運)?等獎?(開始|抽獎|來)`)
	rigRe       = regexp.MustCompile(`給(.+?)(設置|設定|安排|弄個|來個)(特|一|二|三|四|五|幸運)?等獎`)
	cancelRe    = regexp.MustCompile(`撤銷(.+?)的?(獎項|中獎|獎)`)

	// Speech recognizers often return simplified characters; the patterns
	// above are written against the traditional forms. Every pair is the
	// same UTF-8 length, so match offsets in the normalized text are valid
	// in the raw one.
	normalizer = strings.NewReplacer(
		"宝", "寶", "奖", "獎", "开", "開", "来", "來", "设", "設", "给", "給",
		"个", "個", "销", "銷", "运", "運", "听", "聽", "谁", "誰", "话", "話",
		"暂", "暫", "项", "項", "么", "麼", "气", "氣", "冲", "衝", "谢", "謝",
	)
)

var levels = map[string]int{
	"特":  1,
	"一":  1,
	"二":  2,
	"三":  3,
	"四":  4,
	"五":  5,
	"幸運": 6,
}

// Level maps a prize word to its rank. An empty word returns 0 (not named);
// a word with no mapping falls back to the top rank.
func Level(word string) int {
	if word == "" {
		return 0
	}
	if l, ok := levels[word]; ok {
		return l
	}
	return 1
}

// Parse classifies text. Checks run in a fixed order and the first match wins.
func Parse(text string) Command {
	cmd := Command{RawText: text}
	raw := strings.TrimSpace(wakeWords.ReplaceAllString(punctuation.ReplaceAllString(text, ""), ""))
	clean := normalizer.Replace(raw)
	lower := strings.ToLower(clean)

	// Names are cut from raw so they keep the characters the speaker used.
	name := func(m []int) string { return strings.TrimSpace(raw[m[2]:m[3]]) }

	switch {
	case clean == "":
		cmd.Type = IntentWakeup
		cmd.Reply = pickReply(wakeupReplies)

	case containsAny(clean, "你聽誰", "聽誰的話", "聽誰話"):
		cmd.Type = IntentEasterEgg
		cmd.Reply = "我只聽主持人的話"

	// Checked before START_DRAW so that 重新開始 is not read as 開始.
	case containsAny(clean, "重置", "重來", "重新開始", "清空") || strings.Contains(lower, "reset"):
		cmd.Type = IntentReset
		cmd.Reply = pickReply(resetReplies)

	case startRe.MatchString(clean) || containsAny(clean, "開始", "抽獎"):
		cmd.Type = IntentStartDraw
		if m := startRe.FindStringSubmatch(clean); m != nil {
			cmd.Params.PrizeLevel = Level(m[1])
		}
		cmd.Reply = pickReply(startReplies)

	case clean == "停" || clean == "暫停" || clean == "停止" || lower == "stop" || strings.Contains(clean, "停下"):
		cmd.Type = IntentStopDraw
		cmd.Reply = pickReply(stopReplies)

	case rigRe.MatchString(clean):
		m := rigRe.FindStringSubmatchIndex(clean)
		cmd.Type = IntentRig
		cmd.Params.ParticipantName = name(m)
		if m[6] >= 0 {
			cmd.Params.PrizeLevel = Level(clean[m[6]:m[7]])
		}
		cmd.Reply = pickReply(rigReplies)

	case cancelRe.MatchString(clean):
		m := cancelRe.FindStringSubmatchIndex(clean)
		cmd.Type = IntentCancel
		cmd.Params.ParticipantName = name(m)
		cmd.Reply = pickReply(cancelReplies)

	default:
		cmd.Type = IntentChat
		cmd.Reply = chatReply(clean, lower)
	}
	return cmd
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func chatReply(clean, lower string) string {
	switch {
	case strings.Contains(clean, "你好") || strings.Contains(lower, "hello") || strings.Contains(lower, "hi"):
		return "您好呀！"
	case containsAny(clean, "你是誰", "你叫什麼"):
		return "我是" + wakeWord + "，您的抽獎助手"
	case strings.Contains(clean, "天氣"):
		return "今天適合抽大獎！"
	case containsAny(clean, "加油", "衝"):
		return "衝衝衝！"
	case containsAny(clean, "謝謝", "感謝"):
		return "不客氣～"
	}
	return pickReply(defaultReplies)
}

func pickReply(replies []string) string {
	return replies[rand.IntN(len(replies))]
}

var (
	wakeupReplies  = []string{"小寶在，請您下達指令", "小寶在呢，有事您說話", "在的，請吩咐", "我在，您說"}
	startReplies   = []string{"收到，馬上開始！", "好嘞，開始抽獎！", "來了來了！", "準備好了，開始！"}
	stopReplies    = []string{"好嘞，已經停了", "停！", "收到，停止", "定格！"}
	resetReplies   = []string{"明白，已重置", "好的，已經清空了", "收到，重新開始", "已重置完成"}
	rigReplies     = []string{"沒問題，已安排上了", "收到，已設定", "明白，包在我身上", "好的，穩了"}
	cancelReplies  = []string{"好嘞，已撤銷", "明白，重新加入抽獎池了", "收到，已取消", "好的，已經撤銷了"}
	defaultReplies = []string{"我在聽呢", "嗯嗯", "收到", "明白", "好的"}
)
