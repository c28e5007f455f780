package bing

// Gender of a synthesized voice.
type Gender int

const (
	Male Gender = iota
	Female
)

func (g Gender) String() string {
	if g == Female {
		return "female"
	}
	return "male"
}

type voiceKey struct {
	locale string
	gender Gender
}

const voicePrefix = "Microsoft Server Speech Text to Speech Voice "

var voices = map[voiceKey]string{
	{"ar-EG", Female}: voicePrefix + "(ar-EG, Hoda)",
	{"de-DE", Female}: voicePrefix + "(de-DE, Hedda)",
	{"de-DE", Male}:   voicePrefix + "(de-DE, Stefan, Apollo)",
	{"en-AU", Female}: voicePrefix + "(en-AU, Catherine)",
	{"en-CA", Female}: voicePrefix + "(en-CA, Linda)",
	{"en-GB", Female}: voicePrefix + "(en-GB, Susan, Apollo)",
	{"en-GB", Male}:   voicePrefix + "(en-GB, George, Apollo)",
	{"en-IN", Male}:   voicePrefix + "(en-IN, Ravi, Apollo)",
	{"en-US", Female}: voicePrefix + "(en-US, ZiraRUS)",
	{"en-US", Male}:   voicePrefix + "(en-US, BenjaminRUS)",
	{"es-ES", Female}: voicePrefix + "(es-ES, Laura, Apollo)",
	{"es-ES", Male}:   voicePrefix + "(es-ES, Pablo, Apollo)",
	{"es-MX", Male}:   voicePrefix + "(es-MX, Raul, Apollo)",
	{"fr-CA", Female}: voicePrefix + "(fr-CA, Caroline)",
	{"fr-FR", Female}: voicePrefix + "(fr-FR, Julie, Apollo)",
	{"fr-FR", Male}:   voicePrefix + "(fr-FR, Paul, Apollo)",
	{"it-IT", Male}:   voicePrefix + "(it-IT, Cosimo, Apollo)",
	{"ja-JP", Female}: voicePrefix + "(ja-JP, Ayumi, Apollo)",
	{"ja-JP", Male}:   voicePrefix + "(ja-JP, Ichiro, Apollo)",
	{"pt-BR", Male}:   voicePrefix + "(pt-BR, Daniel, Apollo)",
	{"ru-RU", Female}: voicePrefix + "(ru-RU, Irina, Apollo)",
	{"ru-RU", Male}:   voicePrefix + "(ru-RU, Pavel, Apollo)",
	{"zh-CN", Female}: voicePrefix + "(zh-CN, HuihuiRUS)",
	{"zh-CN", Male}:   voicePrefix + "(zh-CN, Kangkang, Apollo)",
	{"zh-HK", Female}: voicePrefix + "(zh-HK, Tracy, Apollo)",
	{"zh-HK", Male}:   voicePrefix + "(zh-HK, Danny, Apollo)",
	{"zh-TW", Female}: voicePrefix + "(zh-TW, Yating, Apollo)",
	{"zh-TW", Male}:   voicePrefix + "(zh-TW, Zhiwei, Apollo)",
}

// Voice returns the voice name for locale and gender.
func Voice(locale string, g Gender) (string, bool) {
	v, ok := voices[voiceKey{locale, g}]
	return v, ok
}

// Genders lists the genders that have a voice for locale.
func Genders(locale string) []Gender {
	var out []Gender
	for _, g := range []Gender{Male, Female} {
		if _, ok := voices[voiceKey{locale, g}]; ok {
			out = append(out, g)
		}
	}
	return out
}
