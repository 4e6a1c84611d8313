/*
Package soundscape implements the session core of the soundscape service.

A Store owns the single mutable session: the continuous controls (clarity,
focus, spray strength), the active category, the live ephemeral entities and
one durable collection whose shape depends on the configured Variant:

  - events: flat captured records, closure then stable
  - moments: collected tokens lock the session, locked sessions capture named moments
  - tracks: captured entities become notes in per-category loop tracks

Mode is never stored. It is derived from the session after every mutation,
and a change is reported to listeners as an EventMode.

All mutations, whether from user gestures or from the Lifecycle timers,
are serialized by the store mutex. Events collected during a mutation are
delivered after the lock is released, in mutation order.
*/
package soundscape
