package firehose_test

import (
	"strings"
	"testing"

	"github.com/DeepEyeCrypto/DeepEyeUnlocker/protocols/firehose"
)

func TestConfigureXmlContainsPayloadSize(t *testing.T) {
	xml := firehose.CreateConfigureXml("emmc")
	if !strings.Contains(xml, `MaxPayloadSizeToTargetInBytes="1048576"`) {
		t.Fatalf("expected payload size attribute in: %s", xml)
	}
}

func TestParseResponseAckCaseInsensitive(t *testing.T) {
	for _, xml := range []string{
		`<data><response value="ACK" /></data>`,
		`<data><response value="ack" /></data>`,
		`<data><response value="AcK" /></data>`,
	} {
		resp := firehose.ParseResponse(xml)
		if !resp.Success {
			t.Fatalf("expected success for %q", xml)
		}
	}
}

func TestParseResponseNak(t *testing.T) {
	resp := firehose.ParseResponse(`<data><response value="NAK" /></data>`)
	if resp.Success {
		t.Fatal("expected NAK to not be success")
	}
}

func TestParseResponseAttributes(t *testing.T) {
	xml := `<data><log value="some message" verbose="1" /></data>`
	resp := firehose.ParseResponse(xml)
	if resp.Attributes["value"] != "some message" {
		t.Fatalf("unexpected value attribute: %q", resp.Attributes["value"])
	}
	if resp.Attributes["verbose"] != "1" {
		t.Fatalf("unexpected verbose attribute: %q", resp.Attributes["verbose"])
	}
}

func TestEraseXmlPartitionName(t *testing.T) {
	xml := firehose.CreateEraseXml("userdata")
	if !strings.Contains(xml, `partition_name="userdata"`) {
		t.Fatalf("expected partition_name attribute in: %s", xml)
	}
}
