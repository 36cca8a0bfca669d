package station

import (
	"testing"

	"github.com/kylelemons/godebug/diff"
)

// TestARPRoundTrip checks that decode(encode(m)) == m for both 1005 and
// 1006, since both encode the same antenna reference point fields.
func TestARPRoundTrip(t *testing.T) {
	var testData = []struct {
		description string
		arp         ARP
	}{
		{
			"1005 no height",
			ARP{
				MessageType: 1005, StationID: 2, ITRFRealisationYear: 3,
				GPSIndicator: true, ReferenceStation: true,
				AntennaRefXMM: 123456, AntennaRefYMM: -234567, AntennaRefZMM: 345678,
			},
		},
		{
			"1006 with height",
			ARP{
				MessageType: 1006, StationID: 99, ITRFRealisationYear: 19,
				GlonassIndicator: true, GalileoIndicator: true, SingleReceiver: true,
				AntennaRefXMM: 1, AntennaRefYMM: -1, AntennaRefZMM: 0,
				HasHeight: true, AntennaHeightMM: 5000,
			},
		},
	}

	for _, td := range testData {
		encoded := EncodeARP(&td.arp)
		got, err := DecodeARP(encoded)
		if err != nil {
			t.Errorf("%s: unexpected error %v", td.description, err)
			continue
		}
		if *got != td.arp {
			t.Errorf("%s:\nwant %+v\ngot  %+v", td.description, td.arp, *got)
		}
	}
}

// TestARPDisplay checks the human-readable summary used by the display
// collaborators, the same multi-line format the legacy Message1005/1006
// types produced.
func TestARPDisplay(t *testing.T) {
	a := ARP{
		MessageType: 1006, StationID: 7, ITRFRealisationYear: 20,
		AntennaRefXMM: 40000000, AntennaRefYMM: -30000000, AntennaRefZMM: 50000000,
		HasHeight: true, AntennaHeightMM: 15000,
	}

	const want = `message type 1006 - station 7, ITRF realisation year 20
ECEF coords in metres (4000.0000, -3000.0000, 5000.0000)
antenna height 1.5000
`

	got := a.Display()
	if want != got {
		t.Errorf("want:\n%s\ngot:\n%s\n", want, got)
		t.Error(diff.Diff(want, got))
	}
}

// TestReceiverAntennaRoundTrip checks the 1033 variable-length string
// codec.
func TestReceiverAntennaRoundTrip(t *testing.T) {
	want := ReceiverAntenna{
		StationID:           42,
		AntennaDescriptor:   "TRM59800.80",
		AntennaSetupID:      1,
		AntennaSerialNumber: "12345",
		ReceiverTypeDesc:    "u-blox ZED-F9P",
		ReceiverFirmware:    "1.13",
		ReceiverSerialNum:   "ABCDEF",
	}

	encoded := EncodeReceiverAntenna(&want)
	got, err := DecodeReceiverAntenna(encoded)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if *got != want {
		t.Errorf("want %+v\ngot  %+v", want, *got)
	}
}
