package mapper

import (
	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/pkg/authsession"
	"ai-chatbot-be/pkg/conversation"
)

func ChatSessionToDTO(s entity.ChatSession) dto.ChatSessionDTO {
	return dto.ChatSessionDTO{
		Id:        s.Id,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func ChatSessionsToDTOs(sessions []entity.ChatSession) []dto.ChatSessionDTO {
	out := make([]dto.ChatSessionDTO, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, ChatSessionToDTO(s))
	}
	return out
}

// SnapshotToResponse is the shape the UI renders, both over REST and the socket.
func SnapshotToResponse(snap conversation.Snapshot) dto.ChatStateResponse {
	res := dto.ChatStateResponse{
		Sessions:        ChatSessionsToDTOs(snap.Sessions),
		ActiveSessionId: snap.ActiveSessionId,
		Turns:           make([]dto.ChatTurnDTO, 0, len(snap.Turns)),
		Pending:         snap.Pending,
		Attachments:     make([]dto.AttachmentDTO, 0, len(snap.Attachments)),
		Notice:          snap.Notice,
	}
	for _, t := range snap.Turns {
		res.Turns = append(res.Turns, dto.ChatTurnDTO{
			Id:        t.Id,
			SessionId: t.ChatSessionId,
			Role:      t.Role,
			Content:   t.Content,
			Metadata:  t.Metadata,
			CreatedAt: t.CreatedAt,
			Local:     t.Local,
		})
	}
	for _, f := range snap.Attachments {
		res.Attachments = append(res.Attachments, dto.AttachmentDTO{
			Id:        f.Id,
			Name:      f.Name,
			URL:       f.URL,
			Processed: f.Processed,
		})
	}
	return res
}

func ProfileToResponse(p *entity.Profile) *dto.ProfileResponse {
	if p == nil {
		return nil
	}
	return &dto.ProfileResponse{
		Id:          p.Id,
		FirstName:   deref(p.FirstName),
		LastName:    deref(p.LastName),
		DisplayName: p.DisplayName(),
		AvatarURL:   deref(p.AvatarURL),
		PhoneNumber: deref(p.PhoneNumber),
		CountryCode: deref(p.CountryCode),
		UpdatedAt:   p.UpdatedAt,
	}
}

func KnowledgeToResponse(d *entity.KnowledgeDocument, similarity float64) dto.KnowledgeDocumentResponse {
	return dto.KnowledgeDocumentResponse{
		Id:         d.Id,
		Content:    d.Content,
		CreatedAt:  d.CreatedAt,
		Similarity: similarity,
	}
}

func SessionToResponse(s *authsession.Session) *dto.SessionResponse {
	if s == nil {
		return nil
	}
	return &dto.SessionResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		User:         dto.UserDTO{Id: s.UserId, Email: s.Email},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
