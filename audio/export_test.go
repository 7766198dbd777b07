package audio

import "github.com/gopxl/beep"

// attachDetached marks the manager live without opening a device, so the mixer
// can be pulled by hand
func (sm *SoundManager) attachDetached() *beep.Mixer {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.initialized = true
	sm.speakerOwned = false
	return sm.mixer
}
