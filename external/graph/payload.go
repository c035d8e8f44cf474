package graph

import "github.com/foxseedlab/callscribe/internal/provider"

const (
	odataCall                     = "#microsoft.graph.call"
	odataServiceHostedMediaConfig = "#microsoft.graph.serviceHostedMediaConfig"
	odataChatInfo                 = "#microsoft.graph.chatInfo"
	odataOrganizerMeetingInfo     = "#microsoft.graph.organizerMeetingInfo"
	odataIdentitySet              = "#microsoft.graph.identitySet"
	modalityAudio                 = "audio"
)

type joinCallRequest struct {
	ODataType           string                   `json:"@odata.type"`
	CallbackURI         string                   `json:"callbackUri"`
	RequestedModalities []string                 `json:"requestedModalities"`
	MediaConfig         odataObject              `json:"mediaConfig"`
	ChatInfo            *chatInfo                `json:"chatInfo,omitempty"`
	MeetingInfo         *organizerMeetingInfo    `json:"meetingInfo,omitempty"`
	TenantID            string                   `json:"tenantId"`
	Source              participantInfoWithOData `json:"source"`
}

type odataObject struct {
	ODataType string `json:"@odata.type"`
}

type chatInfo struct {
	ODataType string `json:"@odata.type,omitempty"`
	ThreadID  string `json:"threadId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

type organizerMeetingInfo struct {
	ODataType string                `json:"@odata.type,omitempty"`
	Organizer *provider.IdentitySet `json:"organizer,omitempty"`
}

type participantInfoWithOData struct {
	Identity identitySetWithOData `json:"identity"`
}

type identitySetWithOData struct {
	ODataType   string             `json:"@odata.type"`
	Application *provider.Identity `json:"application,omitempty"`
}

type callResponse struct {
	ID          string                `json:"id"`
	State       string                `json:"state"`
	ChatInfo    *chatInfo             `json:"chatInfo"`
	MeetingInfo *organizerMeetingInfo `json:"meetingInfo"`
}

func (r callResponse) threadID() string {
	if r.ChatInfo == nil {
		return ""
	}
	return r.ChatInfo.ThreadID
}

func (r callResponse) organizerID() string {
	if r.MeetingInfo == nil || r.MeetingInfo.Organizer == nil || r.MeetingInfo.Organizer.User == nil {
		return ""
	}
	return r.MeetingInfo.Organizer.User.ID
}

type participantListResponse struct {
	Value []participantResource `json:"value"`
}

type participantResource struct {
	ID   string `json:"id"`
	Info struct {
		Identity provider.IdentitySet `json:"identity"`
	} `json:"info"`
}

type subscribeToToneRequest struct {
	ClientContext string `json:"clientContext"`
}

// buildJoinRequest assembles the create-call body. Without parsed meeting info the chat and
// organizer blocks are omitted and the bot's own tenant is used.
func (c *Client) buildJoinRequest(info *provider.MeetingInfo, displayName string) joinCallRequest {
	req := joinCallRequest{
		ODataType:           odataCall,
		CallbackURI:         c.cfg.CallbackURL,
		RequestedModalities: []string{modalityAudio},
		MediaConfig:         odataObject{ODataType: odataServiceHostedMediaConfig},
		TenantID:            c.cfg.TenantID,
		Source: participantInfoWithOData{
			Identity: identitySetWithOData{
				ODataType: odataIdentitySet,
				Application: &provider.Identity{
					ID:          c.cfg.ClientID,
					DisplayName: displayName,
				},
			},
		},
	}
	if info == nil {
		return req
	}
	req.TenantID = provider.FirstNonEmpty(info.TenantID, c.cfg.TenantID)
	if info.ThreadID != "" {
		req.ChatInfo = &chatInfo{
			ODataType: odataChatInfo,
			ThreadID:  info.ThreadID,
			MessageID: info.MessageID,
		}
	}
	if info.OrganizerID != "" {
		req.MeetingInfo = &organizerMeetingInfo{
			ODataType: odataOrganizerMeetingInfo,
			Organizer: &provider.IdentitySet{
				User: &provider.Identity{ID: info.OrganizerID, TenantID: req.TenantID},
			},
		}
	}
	return req
}
