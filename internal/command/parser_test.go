package command

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		intent Intent
		params Params
	}{
		{"wake word only", "小寶小寶", IntentWakeup, Params{}},
		{"wake word with punctuation", "小寶！", IntentWakeup, Params{}},
		{"easter egg", "小寶你聽誰的話", IntentEasterEgg, Params{}},
		{"start without prize", "小寶，開始抽獎", IntentStartDraw, Params{}},
		{"start with prize", "一等獎開始", IntentStartDraw, Params{PrizeLevel: 1}},
		{"start special prize", "特等獎開始", IntentStartDraw, Params{PrizeLevel: 1}},
		{"start simplified", "小宝二等奖开始", IntentStartDraw, Params{PrizeLevel: 2}},
		{"stop", "停", IntentStopDraw, Params{}},
		{"stop with wake word", "小寶，停止！", IntentStopDraw, Params{}},
		{"stop english", "STOP", IntentStopDraw, Params{}},
		{"reset", "重置", IntentReset, Params{}},
		{"restart is reset", "重新開始", IntentReset, Params{}},
		{"rig", "給張三設置一等獎", IntentRig, Params{ParticipantName: "張三", PrizeLevel: 1}},
		{"rig without level", "給Bob安排等獎", IntentRig, Params{ParticipantName: "Bob"}},
		{"rig simplified keeps name", "给李四设置三等奖", IntentRig, Params{ParticipantName: "李四", PrizeLevel: 3}},
		{"cancel", "撤銷王五的獎項", IntentCancel, Params{ParticipantName: "王五"}},
		{"cancel without particle", "撤銷Alice中獎", IntentCancel, Params{ParticipantName: "Alice"}},
		{"chat", "今天天氣如何", IntentChat, Params{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Parse(tt.text)
			if cmd.Type != tt.intent {
				t.Fatalf("Parse(%q).Type = %s, want %s", tt.text, cmd.Type, tt.intent)
			}
			if cmd.Params != tt.params {
				t.Errorf("Parse(%q).Params = %+v, want %+v", tt.text, cmd.Params, tt.params)
			}
			if cmd.RawText != tt.text {
				t.Errorf("RawText = %q, want %q", cmd.RawText, tt.text)
			}
			if cmd.Reply == "" {
				t.Error("Expected a reply")
			}
		})
	}
}

func TestLevel(t *testing.T) {
	tests := map[string]int{
		"":   0,
		"特":  1,
		"一":  1,
		"二":  2,
		"五":  5,
		"幸運": 6,
		"六":  1,
	}
	for word, want := range tests {
		if got := Level(word); got != want {
			t.Errorf("Level(%q) = %d, want %d", word, got, want)
		}
	}
}

func TestChatReplies(t *testing.T) {
	if got := Parse("小寶你好").Reply; got != "您好呀！" {
		t.Errorf("greeting reply = %q", got)
	}
	if got := Parse("謝謝小寶").Reply; got != "不客氣～" {
		t.Errorf("thanks reply = %q", got)
	}
}
