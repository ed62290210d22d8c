package events

import (
	"testing"

	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
)

func fakePod(uid string) *corev1.Pod {
	return &corev1.Pod{ObjectMeta: metav1.ObjectMeta{UID: types.UID(uid)}}
}

func TestWarningDeduplicatesRepeats(t *testing.T) {
	g := NewGomegaWithT(t)
	fake := record.NewFakeRecorder(10)
	r := NewRecorder(fake)
	obj := fakePod("abc")

	r.Warning(obj, "Reason", "same message")
	r.Warning(obj, "Reason", "same message")
	r.Warning(obj, "Reason", "same message")

	g.Expect(fake.Events).To(HaveLen(1))
}

func TestWarningEmitsDistinctReasons(t *testing.T) {
	g := NewGomegaWithT(t)
	fake := record.NewFakeRecorder(10)
	r := NewRecorder(fake)
	obj := fakePod("abc")

	r.Warning(obj, "ReasonA", "message")
	r.Warning(obj, "ReasonB", "message")

	g.Expect(fake.Events).To(HaveLen(2))
}

func TestWarningEmitsDistinctObjects(t *testing.T) {
	g := NewGomegaWithT(t)
	fake := record.NewFakeRecorder(10)
	r := NewRecorder(fake)

	r.Warning(fakePod("abc"), "Reason", "message")
	r.Warning(fakePod("def"), "Reason", "message")

	g.Expect(fake.Events).To(HaveLen(2))
}
