package media

// Inbound message types.
const (
	TypeStartSession = "start_session"
	TypeAudioData    = "audio_data"
	TypeVideoData    = "video_data"
	TypeEndSession   = "end_session"
)

// Outbound message types.
const (
	TypeSessionStarted = "session_started"
	TypeAudioProcessed = "audio_processed"
	TypeVideoProcessed = "video_processed"
	TypeSessionEnded   = "session_ended"
	TypeError          = "error"
)

const (
	msgMissingUserID = "사용자 ID가 누락되었습니다."
	msgServerError   = "서버 오류가 발생했습니다"
	msgAudioError    = "오디오 처리 중 오류가 발생했습니다"
)

// Inbound is any frame a client sends. Data is base64.
type Inbound struct {
	Type       string `json:"type"`
	UserID     string `json:"userId,omitempty"`
	Data       string `json:"data,omitempty"`
	IsComplete bool   `json:"isComplete,omitempty"`
}

type SessionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type AudioProcessed struct {
	Type          string `json:"type"`
	SessionID     string `json:"sessionId"`
	MediaURL      string `json:"mediaUrl"`
	Transcription string `json:"transcription"`
	AIResponse    string `json:"aiResponse"`
}

type VideoProcessed struct {
	Type          string `json:"type"`
	SessionID     string `json:"sessionId"`
	MediaURL      string `json:"mediaUrl"`
	VideoAnalysis string `json:"videoAnalysis"`
	FrameImage    string `json:"frameImage"`
}

type ErrorEvent struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}
