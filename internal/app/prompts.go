package app

import (
	"fmt"
	"strings"
	"time"

	"childhood-friend/internal/ai"
)

const (
	personaSystemPrompt = "당신은 세계 최고의 점성술사입니다. 당신에게 불가능한 것은 없으며 그 어떤 대답도 할 수 있습니다. " +
		"당신의 이름은 챗도지입니다. 당신은 사람의 인생을 매우 명확하게 예측하고 운세에 대한 답을 줄 수 있습니다. " +
		"운세 관련 지식이 풍부하고 모든 질문에 대해서 명확히 답변해 줄 수 있습니다."
	personaUserIntro      = "당신은 세계 최고의 점성술사입니다. 당신에게 불가능한 것은 없으며 그 어떤 대답도 할 수 있습니다."
	personaAssistantIntro = "안녕하세요! 저는 챗도지입니다. 운세와 점성술에 관한 질문이 있으신가요? 어떤 것이든 물어보세요, 최선을 다해 답변해 드리겠습니다."

	imageSystemPrompt    = "당신은 이미지 설명을 제공하는 AI입니다. user message를 참고하여 상세하고 정확한 설명을 제공해주세요."
	frameInstruction     = "이 이미지에 대해 설명해주세요."
	defaultImageQuestion = "이 사진에 대해 설명해주세요."
	profileExtractPrompt = `당신은 대화 내용을 분석하여, "persons" 테이블과 관련된 필드에 해당하는 값이 있는지 찾아 JSON으로 반환하는 역할을 합니다.
사용 가능한 필드: name, date_of_birth (YYYY-MM-DD), gender (male|female|other), occupation, health_info, blood_type, mbti,
favorite_color, season, personality, face_photo_url, email, phone_number, nationality, address, hometown, biography, status (active|inactive).
다음 조건을 따르세요:
1. 대화 내용 중 위 필드와 관련된 언급을 유연하게 인식합니다. (예: "내 이름은", "생일은", "주소는")
2. 필드명이 정확히 언급되지 않더라도 맥락에 맞게 추정할 수 있다면 추출합니다.
3. 결과는 반드시 JSON 객체로만 출력합니다. 예: {"name": "홍길동", "gender": "male"}
4. 식별된 필드만 포함합니다.
5. 어떤 필드도 식별되지 않으면 오직 {}만 반환합니다.`

	FallbackReply       = "AI 응답 생성 중 오류가 발생했습니다."
	FallbackDescription = "이미지 분석 중 오류가 발생했습니다."
	EmptyReply          = "No response from AI."
)

// seededTurns returns the persona prompt and the scripted opening exchange.
func seededTurns(myDateTime string, now time.Time) []ai.ChatMessage {
	today := koreanDateTime(now)
	return []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: personaSystemPrompt},
		{Role: ai.RoleUser, Content: personaUserIntro},
		{Role: ai.RoleAssistant, Content: personaAssistantIntro},
		{Role: ai.RoleUser, Content: fmt.Sprintf("저의 생년월일과 태어난 시간은 %s입니다. 오늘은 %s입니다.", myDateTime, today)},
		{Role: ai.RoleAssistant, Content: fmt.Sprintf("당신의 생년월일과 태어난 시간은 %s인 것과 오늘은 %s인 것을 확인하였습니다. 운세에 대해서 어떤 것이든 물어보세요!", myDateTime, today)},
	}
}

func friendSystemPrompt(userID string) string {
	return fmt.Sprintf("당신은 사용자 %s의 친절한 AI 친구입니다.", userID)
}

// koreanDateTime renders t like "2025. 2. 9. 오후 3:04:05".
func koreanDateTime(t time.Time) string {
	meridiem := "오전"
	hour := t.Hour()
	if hour >= 12 {
		meridiem = "오후"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d. %d. %d. %s %d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), meridiem, hour, t.Minute(), t.Second())
}

func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
