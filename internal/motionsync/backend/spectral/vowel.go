package spectral

// channel is one value the backend produces per frame.
type channel int

const (
	channelA channel = iota
	channelI
	channelU
	channelE
	channelO
	channelSilence
	channelCount
)

const vowelCount = int(channelSilence)

var channelIDs = [channelCount]string{"A", "I", "U", "E", "O", "Silence"}

// formant holds the first two formant frequencies of a vowel in Hz.
type formant struct {
	f1, f2 float64
}

var vowelFormants = [vowelCount]formant{
	channelA: {800, 1200},
	channelI: {300, 2300},
	channelU: {350, 1200},
	channelE: {500, 1900},
	channelO: {500, 800},
}

// formantBandwidth is the relative half width of a formant band.
const formantBandwidth = 0.15

func channelOf(audioParameterID string) (channel, bool) {
	for c, id := range channelIDs {
		if id == audioParameterID {
			return channel(c), true
		}
	}
	return 0, false
}

// ChannelIDs lists the audio parameter ids the backend produces values for.
func ChannelIDs() []string {
	return append([]string(nil), channelIDs[:]...)
}
