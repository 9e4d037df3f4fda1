package ai

import (
	"reflect"
	"testing"

	"honeypot-lab/internal/domain/models"
)

func TestScoreEndToEndScam(t *testing.T) {
	intel := NewEntityExtractor().Extract(endToEndScam)
	got := NewScoreEngine().Score(endToEndScam, intel)

	if got.Confidence < 80 {
		t.Fatalf("Confidence = %v, want >= 80", got.Confidence)
	}
	for _, tag := range []string{"URGENCY", "MONEY_REQUEST", "CRYPTO_SCAM", "BANK_FRAUD", "FINANCIAL_FRAUD"} {
		if !got.HasTag(tag) {
			t.Errorf("RiskTags = %v, missing %s", got.RiskTags, tag)
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		intel models.ExtractedIntel
		want  float64
		tags  []string
	}{
		{
			name: "benign",
			text: "hello there friend",
			want: 0,
			tags: []string{},
		},
		{
			name: "short weak message suppressed",
			text: "pay now",
			want: 0,
			tags: []string{},
		},
		{
			name: "urgency and money combined",
			text: "urgently pay the fee today",
			want: 45,
			tags: []string{"MONEY_REQUEST", "URGENCY"},
		},
		{
			name:  "upi alone",
			text:  "my handle is a@ybl",
			intel: models.ExtractedIntel{UPIIDs: []string{"a@ybl"}},
			want:  30,
			tags:  []string{},
		},
		{
			name:  "upi with money request",
			text:  "please pay to a@paytm",
			intel: models.ExtractedIntel{UPIIDs: []string{"a@paytm"}},
			want:  85,
			tags:  []string{"FINANCIAL_FRAUD", "MONEY_REQUEST"},
		},
		{
			name:  "upi with impersonation",
			text:  "this is police, a@ybl",
			intel: models.ExtractedIntel{UPIIDs: []string{"a@ybl"}},
			want:  85,
			tags:  []string{"FINANCIAL_FRAUD", "IMPERSONATION"},
		},
		{
			name:  "bank with impersonation is not corroborated",
			text:  "police here, account 123456789012",
			intel: models.ExtractedIntel{BankAccounts: []string{"123456789012"}},
			want:  35,
			tags:  []string{"IMPERSONATION"},
		},
		{
			name: "remote access counts double and is floored",
			text: "please install anydesk on your phone",
			want: 90,
			tags: []string{"REMOTE_ACCESS"},
		},
		{
			name:  "single token wallet floored",
			text:  "0x52908400098527886E0F7030069857D2E4169EE7",
			intel: models.ExtractedIntel{CryptoWallets: []string{"0x52908400098527886E0F7030069857D2E4169EE7"}},
			want:  85,
			tags:  []string{"CRYPTO_SCAM"},
		},
		{
			name:  "capped at 100",
			text:  "urgently pay the fee to police via anydesk",
			intel: models.ExtractedIntel{URLs: []string{"http://x.tk"}, CryptoWallets: []string{"0xabc"}},
			want:  100,
			tags:  []string{"CRYPTO_SCAM", "IMPERSONATION", "MONEY_REQUEST", "PHISHING_LINK", "REMOTE_ACCESS", "URGENCY"},
		},
	}

	engine := NewScoreEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Score(tt.text, tt.intel)
			if got.Confidence != tt.want {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.want)
			}
			if !reflect.DeepEqual(got.RiskTags, tt.tags) {
				t.Errorf("RiskTags = %v, want %v", got.RiskTags, tt.tags)
			}
		})
	}
}

func TestScoreHardEvidenceFloor(t *testing.T) {
	engine := NewScoreEngine()
	texts := []string{
		"ok",
		"send 0x52908400098527886E0F7030069857D2E4169EE7",
		"here is the link",
	}
	for _, text := range texts {
		withWallet := engine.Score(text, models.ExtractedIntel{CryptoWallets: []string{"0x52908400098527886E0F7030069857D2E4169EE7"}})
		if withWallet.Confidence < 80 {
			t.Errorf("Score(%q) with wallet = %v, want >= 80", text, withWallet.Confidence)
		}
		withLink := engine.Score(text, models.ExtractedIntel{URLs: []string{"http://evil.tk"}})
		if withLink.Confidence < 80 {
			t.Errorf("Score(%q) with link = %v, want >= 80", text, withLink.Confidence)
		}
	}
}

func TestScoreWalletNeverLowersScore(t *testing.T) {
	engine := NewScoreEngine()
	texts := []string{
		"hello",
		"urgently pay the fee today",
		"this is police, share otp",
		endToEndScam,
	}
	for _, text := range texts {
		base := NewEntityExtractor().Extract(text)
		withWallet := base.Clone()
		withWallet.Merge(models.ExtractedIntel{CryptoWallets: []string{"0x52908400098527886E0F7030069857D2E4169EE7"}})

		before := engine.Score(text, base).Confidence
		after := engine.Score(text, withWallet).Confidence
		if after < before {
			t.Errorf("Score(%q): adding a wallet lowered %v to %v", text, before, after)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	engine := NewScoreEngine()
	intel := models.ExtractedIntel{
		UPIIDs:        []string{"a@ybl"},
		BankAccounts:  []string{"123456789012"},
		URLs:          []string{"http://a.tk"},
		CryptoWallets: []string{"0x1"},
	}
	got := engine.Score("urgently transfer the deposit to customer support using teamviewer and share otp", intel)
	if got.Confidence < 0 || got.Confidence > 100 {
		t.Fatalf("Confidence = %v out of [0,100]", got.Confidence)
	}
}
